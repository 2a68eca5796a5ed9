package compilerapi

// This file extends build.go with placement-aware constructors. The ordinary Build* helpers
// always append to a block's tail, which is the right default for a frontend lowering
// bytecode in program order; scalar replacement and memory coalescing instead need to splice
// a newly built instruction at a specific point inside a block that may already hold other
// instructions (a materialization site recorded mid-block, or the position a coalesced pair
// replaces), so they go through Placement instead.

// Placement names a splice point for a newly constructed instruction: immediately after
// After, or — when After is InstIDInvalid — at the head of Blk (before any existing
// instruction, which is where a new phi must land; or as the block's sole instruction, if
// Blk is still empty).
type Placement struct {
	Blk   BlockID
	After InstID
}

// PlacementAfter is the common case: splice right after an existing instruction.
func PlacementAfter(blk BlockID, after InstID) Placement { return Placement{Blk: blk, After: after} }

// PlacementHead splices at the front of blk.
func PlacementHead(blk BlockID) Placement { return Placement{Blk: blk, After: InstIDInvalid} }

func (g *Graph) place(p Placement, inst *Inst) {
	if p.After != InstIDInvalid {
		g.InsertAfter(p.After, inst)
		return
	}
	root := g.Block(p.Blk).Root()
	if root == InstIDInvalid {
		g.AppendInst(p.Blk, inst)
		return
	}
	g.InsertBefore(root, inst)
}

// BuildNewObjectAt is BuildNewObject, spliced at p instead of appended to a block's tail
// (used when cloning an allocation at a partial-escape-analysis materialization site).
func (g *Graph) BuildNewObjectAt(p Placement, class ClassID) InstID {
	inst := g.NewInst(OpcodeNewObject, TypeReference)
	inst.class = class
	inst.SetFlag(FlagMovableObject)
	g.place(p, inst)
	return inst.id
}

// BuildNewArrayAt is BuildNewArray, spliced at p.
func (g *Graph) BuildNewArrayAt(p Placement, class ClassID, elemType DataType, length InstID) InstID {
	inst := g.NewInst(OpcodeNewArray, TypeReference)
	inst.class = class
	inst.arrayElem = elemType
	inst.SetFlag(FlagMovableObject)
	g.bind(inst, length)
	g.place(p, inst)
	return inst.id
}

// BuildStoreObjectAt is BuildStoreObject, spliced at p.
func (g *Graph) BuildStoreObjectAt(p Placement, obj InstID, field FieldRef, value InstID) InstID {
	inst := g.NewInst(OpcodeStoreObject, TypeVoid)
	inst.field = field
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, obj, value)
	g.place(p, inst)
	return inst.id
}

// BuildStoreArrayIAt is BuildStoreArrayI, spliced at p.
func (g *Graph) BuildStoreArrayIAt(p Placement, arr InstID, idx int64, value InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayI, TypeVoid)
	inst.constIdx = idx
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, value)
	g.place(p, inst)
	return inst.id
}

// BuildCastAt is BuildCast, spliced at p.
func (g *Graph) BuildCastAt(p Placement, typ DataType, x InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeCast, typ), x)
	g.place(p, inst)
	return inst.id
}

// BuildPhiAt inserts an empty phi at the head of blk. It takes no Placement: a phi always
// goes to the front of its block, regardless of what other instructions scalar replacement
// has already inserted there.
func (g *Graph) BuildPhiAt(blk BlockID, typ DataType) InstID {
	inst := g.NewInst(OpcodePhi, typ)
	inst.phiInputs = make([]InstID, g.Block(blk).Preds())
	for i := range inst.phiInputs {
		inst.phiInputs[i] = InstIDInvalid
	}
	g.place(PlacementHead(blk), inst)
	return inst.id
}

// BuildLoadArrayPairAt is BuildLoadArrayPair, spliced at p.
func (g *Graph) BuildLoadArrayPairAt(p Placement, typ DataType, arr, index InstID) InstID {
	inst := g.NewInst(OpcodeLoadArrayPair, typ)
	inst.constIdx = -1
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr, index)
	g.place(p, inst)
	return inst.id
}

// BuildLoadArrayPairIAt is BuildLoadArrayPairI, spliced at p.
func (g *Graph) BuildLoadArrayPairIAt(p Placement, typ DataType, arr InstID, idx int64) InstID {
	inst := g.NewInst(OpcodeLoadArrayPairI, typ)
	inst.constIdx = idx
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr)
	g.place(p, inst)
	return inst.id
}

// BuildStoreArrayPairAt is BuildStoreArrayPair, spliced at p.
func (g *Graph) BuildStoreArrayPairAt(p Placement, arr, index, v0, v1 InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayPair, TypeVoid)
	inst.constIdx = -1
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, index, v0, v1)
	g.place(p, inst)
	return inst.id
}

// BuildStoreArrayPairIAt is BuildStoreArrayPairI, spliced at p.
func (g *Graph) BuildStoreArrayPairIAt(p Placement, arr InstID, idx int64, v0, v1 InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayPairI, TypeVoid)
	inst.constIdx = idx
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, v0, v1)
	g.place(p, inst)
	return inst.id
}

// BuildLoadPairPartAt is BuildLoadPairPart, spliced at p.
func (g *Graph) BuildLoadPairPartAt(p Placement, typ DataType, pairLoad InstID, part int) InstID {
	inst := g.bind(g.NewInst(OpcodeLoadPairPart, typ), pairLoad)
	inst.pairIndex = part
	g.place(p, inst)
	return inst.id
}

// ClearPhiInputs nulls every input slot of phi, unlinking each producer's reciprocal phi-user
// record via SetPhiInput. Used before deleting a whole phi instruction (e.g. scalar replacement
// retiring a phi that partial escape analysis repurposed as a merged virtual allocation's owner).
func (g *Graph) ClearPhiInputs(phi InstID) {
	p := g.Inst(phi)
	for i := range p.phiInputs {
		if p.phiInputs[i] != InstIDInvalid {
			g.SetPhiInput(phi, i, InstIDInvalid)
		}
	}
}

// RewriteSaveStateInputs replaces ss's entire input list and SaveStateData.Entries with
// entries, unlinking every old input and relinking the new ones. Used by scalar replacement to
// drop or substitute entries that captured a since-eliminated virtual reference (spec 4.3 step
// 5).
func (g *Graph) RewriteSaveStateInputs(ss InstID, entries []SaveStateEntry) {
	inst := g.Inst(ss)
	for _, in := range inst.inputs {
		if in.value != InstIDInvalid {
			g.unlinkUser(in.value, in.userPos)
		}
	}
	inst.inputs = make([]Input, len(entries))
	for n, e := range entries {
		pos := g.linkUser(e.Value, ss, n)
		inst.inputs[n] = Input{value: e.Value, typ: g.Inst(e.Value).typ, userPos: pos}
	}
	inst.saveState.Entries = append([]SaveStateEntry(nil), entries...)
	inst.saveState.Virtualized = make([]bool, len(entries))
}
