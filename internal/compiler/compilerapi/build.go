package compilerapi

// This file gives callers (passes and tests) an ergonomic way to construct instructions and
// append them to a block, instead of poking at NewInst/AppendInst/SetInput directly for every
// opcode. Every Build* helper allocates, wires its inputs, appends to blk, and returns the new
// instruction's id.

func (g *Graph) bind(inst *Inst, args ...InstID) *Inst {
	inst.inputs = make([]Input, len(args))
	for n, a := range args {
		if a == InstIDInvalid {
			continue
		}
		pos := g.linkUser(a, inst.id, n)
		inst.inputs[n] = Input{value: a, typ: g.Inst(a).typ, userPos: pos}
	}
	g.recomputeRequiresState(inst)
	return inst
}

// BuildIconst appends an integer constant of type typ carrying the raw bits in `bits`.
func (g *Graph) BuildIconst(blk BlockID, typ DataType, bits uint64) InstID {
	inst := g.NewInst(OpcodeIconst, typ)
	inst.constBits = bits
	inst.SetFlag(FlagNoDCE)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildFconst appends a floating point constant.
func (g *Graph) BuildFconst(blk BlockID, typ DataType, bits uint64) InstID {
	inst := g.NewInst(OpcodeFconst, typ)
	inst.constBits = bits
	inst.SetFlag(FlagNoDCE)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildNullConst appends the canonical null reference constant.
func (g *Graph) BuildNullConst(blk BlockID) InstID {
	inst := g.NewInst(OpcodeNullConst, TypeReference)
	inst.SetFlag(FlagNoDCE)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildAddI appends an integer add.
func (g *Graph) BuildAddI(blk BlockID, typ DataType, x, y InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeAddI, typ), x, y)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildSubI appends an integer subtract.
func (g *Graph) BuildSubI(blk BlockID, typ DataType, x, y InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeSubI, typ), x, y)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCast appends a type-widening/narrowing conversion of x to typ.
func (g *Graph) BuildCast(blk BlockID, typ DataType, x InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeCast, typ), x)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildIcmp appends an integer compare yielding a bool.
func (g *Graph) BuildIcmp(blk BlockID, cond CompareCond, x, y InstID) InstID {
	inst := g.NewInst(OpcodeIcmp, TypeBool)
	inst.cond = cond
	g.bind(inst, x, y)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCompareRef appends a reference-identity compare yielding a bool.
func (g *Graph) BuildCompareRef(blk BlockID, cond CompareCond, x, y InstID) InstID {
	inst := g.NewInst(OpcodeCompareRef, TypeBool)
	inst.cond = cond
	g.bind(inst, x, y)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildPhi appends an empty phi; callers fill phiInputs via SetPhiInput once all predecessor
// edges are known (a phi is always constructed after its block's predecessor list is final).
func (g *Graph) BuildPhi(blk BlockID, typ DataType) InstID {
	inst := g.NewInst(OpcodePhi, typ)
	inst.phiInputs = make([]InstID, g.Block(blk).Preds())
	for i := range inst.phiInputs {
		inst.phiInputs[i] = InstIDInvalid
	}
	g.AppendInst(blk, inst)
	return inst.id
}

// SetPhiInput binds the producer for phi's predIdx-th predecessor edge, linking the
// reciprocal user record so phi inputs participate in use-def symmetry like any other input.
func (g *Graph) SetPhiInput(phi InstID, predIdx int, producer InstID) {
	p := g.Inst(phi)
	old := p.phiInputs[predIdx]
	if old != InstIDInvalid {
		g.removePhiUser(old, phi, predIdx)
	}
	p.phiInputs[predIdx] = producer
	if producer != InstIDInvalid {
		g.Inst(producer).users = append(g.Inst(producer).users, Use{User: phi, Slot: phiSlotTag(predIdx)})
	}
}

// phiSlotTag distinguishes phi-input use records from regular-input use records by biasing the
// slot number out of range of any input index; removePhiUser, unlinkUser, ReplaceUsers and
// checkUseDefSymmetry each recognize a negative slot and follow phiInputs instead of inputs.
func phiSlotTag(predIdx int) int { return -(predIdx + 1) }

func (g *Graph) removePhiUser(producer, phi InstID, predIdx int) {
	p := g.Inst(producer)
	tag := phiSlotTag(predIdx)
	for i, u := range p.users {
		if u.User == phi && u.Slot == tag {
			last := len(p.users) - 1
			moved := p.users[last]
			p.users[i] = moved
			p.users = p.users[:last]
			if i != last && moved.Slot >= 0 {
				g.Inst(moved.User).inputs[moved.Slot].userPos = i
			}
			return
		}
	}
}

// BuildNewObject appends a (non-virtualized) object allocation of the given class.
func (g *Graph) BuildNewObject(blk BlockID, class ClassID) InstID {
	inst := g.NewInst(OpcodeNewObject, TypeReference)
	inst.class = class
	inst.SetFlag(FlagMovableObject)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildNewArray appends an array allocation of elemType elements, sized by the value of
// length.
func (g *Graph) BuildNewArray(blk BlockID, class ClassID, elemType DataType, length InstID) InstID {
	inst := g.NewInst(OpcodeNewArray, TypeReference)
	inst.class = class
	inst.arrayElem = elemType
	inst.SetFlag(FlagMovableObject)
	g.bind(inst, length)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildInitObject appends an InitObject, valid only when Options.SupportInitObjectInst.
func (g *Graph) BuildInitObject(blk BlockID, class ClassID) InstID {
	inst := g.NewInst(OpcodeInitObject, TypeReference)
	inst.class = class
	inst.SetFlag(FlagMovableObject)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadAndInitClass appends a class-resolution barrier.
func (g *Graph) BuildLoadAndInitClass(blk BlockID, class ClassID) InstID {
	inst := g.NewInst(OpcodeLoadAndInitClass, TypePointer)
	inst.class = class
	inst.SetFlag(FlagBarrier)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadObject appends a field load of type typ from obj.
func (g *Graph) BuildLoadObject(blk BlockID, typ DataType, obj InstID, field FieldRef) InstID {
	inst := g.NewInst(OpcodeLoadObject, typ)
	inst.field = field
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, obj)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildStoreObject appends a field store of value into obj.
func (g *Graph) BuildStoreObject(blk BlockID, obj InstID, field FieldRef, value InstID) InstID {
	inst := g.NewInst(OpcodeStoreObject, TypeVoid)
	inst.field = field
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, obj, value)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadArray appends an array load at a dynamic index.
func (g *Graph) BuildLoadArray(blk BlockID, typ DataType, arr, index InstID) InstID {
	inst := g.NewInst(OpcodeLoadArray, typ)
	inst.constIdx = -1
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr, index)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildStoreArray appends an array store at a dynamic index.
func (g *Graph) BuildStoreArray(blk BlockID, arr, index, value InstID) InstID {
	inst := g.NewInst(OpcodeStoreArray, TypeVoid)
	inst.constIdx = -1
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, index, value)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadArrayI appends an array load at the compile-time constant index idx.
func (g *Graph) BuildLoadArrayI(blk BlockID, typ DataType, arr InstID, idx int64) InstID {
	inst := g.NewInst(OpcodeLoadArrayI, typ)
	inst.constIdx = idx
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildStoreArrayI appends an array store at the compile-time constant index idx.
func (g *Graph) BuildStoreArrayI(blk BlockID, arr InstID, idx int64, value InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayI, TypeVoid)
	inst.constIdx = idx
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, value)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildNullCheck appends a null check guarding ref; it produces ref's own value so users of
// the checked reference can be rewired to it directly.
func (g *Graph) BuildNullCheck(blk BlockID, ref InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeNullCheck, g.Inst(ref).typ), ref)
	inst.SetFlag(FlagCanDeoptimize)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildJump appends an unconditional branch to target.
func (g *Graph) BuildJump(blk BlockID, target BlockID) InstID {
	inst := g.NewInst(OpcodeJump, TypeVoid)
	inst.SetFlag(FlagTerminator)
	inst.targets = []BlockID{target}
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCondBranch appends the IfTrue/IfFalse terminator pair for a two-way branch on cond.
func (g *Graph) BuildCondBranch(blk BlockID, cond InstID, trueTarget, falseTarget BlockID) (InstID, InstID) {
	t := g.bind(g.NewInst(OpcodeIfTrue, TypeVoid), cond)
	t.SetFlag(FlagTerminator)
	t.targets = []BlockID{trueTarget}
	g.AppendInst(blk, t)

	f := g.bind(g.NewInst(OpcodeIfFalse, TypeVoid), cond)
	f.SetFlag(FlagTerminator)
	f.targets = []BlockID{falseTarget}
	g.AppendInst(blk, f)
	return t.id, f.id
}

// BuildReturn appends a value-returning terminator.
func (g *Graph) BuildReturn(blk BlockID, value InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeReturn, TypeVoid), value)
	inst.SetFlag(FlagTerminator)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildReturnVoid appends a void-returning terminator.
func (g *Graph) BuildReturnVoid(blk BlockID) InstID {
	inst := g.NewInst(OpcodeReturnVoid, TypeVoid)
	inst.SetFlag(FlagTerminator)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildDeoptimize appends an unconditional exit to the interpreter, restoring from
// saveState.
func (g *Graph) BuildDeoptimize(blk BlockID, saveState InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeDeoptimize, TypeVoid), saveState)
	inst.SetFlag(FlagTerminator | FlagCanDeoptimize)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildDeoptimizeIf appends a conditional exit to the interpreter.
func (g *Graph) BuildDeoptimizeIf(blk BlockID, cond, saveState InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeDeoptimizeIf, TypeVoid), cond, saveState)
	inst.SetFlag(FlagCanDeoptimize)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCall appends a direct call to method, taking args plus an optional trailing SaveState.
func (g *Graph) BuildCall(blk BlockID, typ DataType, method MethodID, args ...InstID) InstID {
	inst := g.NewInst(OpcodeCall, typ)
	inst.method = method
	inst.SetFlag(FlagIsCall | FlagBarrier | FlagCanThrow)
	g.bind(inst, args...)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCallIndirect appends a call through a resolved function pointer value (the first arg).
func (g *Graph) BuildCallIndirect(blk BlockID, typ DataType, args ...InstID) InstID {
	inst := g.NewInst(OpcodeCallIndirect, typ)
	inst.SetFlag(FlagIsCall | FlagBarrier | FlagCanThrow)
	g.bind(inst, args...)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildCallInlined appends the opening bracket of an inlined callee's body.
func (g *Graph) BuildCallInlined(blk BlockID, typ DataType, method MethodID, args ...InstID) InstID {
	inst := g.NewInst(OpcodeCallInlined, typ)
	inst.method = method
	inst.SetFlag(FlagIsCall | FlagInlined)
	g.bind(inst, args...)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildReturnInlined appends the closing bracket matching a prior Call.Inlined, yielding its
// return value.
func (g *Graph) BuildReturnInlined(blk BlockID, typ DataType, call, value InstID) InstID {
	inst := g.bind(g.NewInst(OpcodeReturnInlined, typ), call, value)
	inst.SetFlag(FlagInlined)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildSaveState appends a deoptimization-metadata-only safepoint capturing entries.
func (g *Graph) BuildSaveState(blk BlockID, entries []SaveStateEntry, callerCall InstID) InstID {
	return g.buildSaveStateLike(blk, OpcodeSaveState, entries, callerCall)
}

// BuildSafePoint appends a GC safepoint capturing entries.
func (g *Graph) BuildSafePoint(blk BlockID, entries []SaveStateEntry, callerCall InstID) InstID {
	return g.buildSaveStateLike(blk, OpcodeSafePoint, entries, callerCall)
}

// BuildSaveStateDeoptimize appends the save state consumed by a Deoptimize/DeoptimizeIf.
func (g *Graph) BuildSaveStateDeoptimize(blk BlockID, entries []SaveStateEntry, callerCall InstID) InstID {
	return g.buildSaveStateLike(blk, OpcodeSaveStateDeoptimize, entries, callerCall)
}

func (g *Graph) buildSaveStateLike(blk BlockID, op Opcode, entries []SaveStateEntry, callerCall InstID) InstID {
	inst := g.NewInst(op, TypeNoType)
	args := make([]InstID, len(entries))
	for n, e := range entries {
		args[n] = e.Value
	}
	g.bind(inst, args...)
	inst.saveState = &SaveStateData{
		Entries:     append([]SaveStateEntry(nil), entries...),
		CallerCall:  callerCall,
		Virtualized: make([]bool, len(entries)),
	}
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadArrayPair appends a coalesced two-element array load at a dynamic base index.
func (g *Graph) BuildLoadArrayPair(blk BlockID, typ DataType, arr, index InstID) InstID {
	inst := g.NewInst(OpcodeLoadArrayPair, typ)
	inst.constIdx = -1
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr, index)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadArrayPairI appends a coalesced two-element array load at a constant base index.
func (g *Graph) BuildLoadArrayPairI(blk BlockID, typ DataType, arr InstID, idx int64) InstID {
	inst := g.NewInst(OpcodeLoadArrayPairI, typ)
	inst.constIdx = idx
	inst.SetFlag(FlagIsLoad)
	g.bind(inst, arr)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildStoreArrayPair appends a coalesced two-element array store at a dynamic base index.
func (g *Graph) BuildStoreArrayPair(blk BlockID, arr, index, v0, v1 InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayPair, TypeVoid)
	inst.constIdx = -1
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, index, v0, v1)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildStoreArrayPairI appends a coalesced two-element array store at a constant base index.
func (g *Graph) BuildStoreArrayPairI(blk BlockID, arr InstID, idx int64, v0, v1 InstID) InstID {
	inst := g.NewInst(OpcodeStoreArrayPairI, TypeVoid)
	inst.constIdx = idx
	inst.SetFlag(FlagIsStore | FlagBarrier)
	g.bind(inst, arr, v0, v1)
	g.AppendInst(blk, inst)
	return inst.id
}

// BuildLoadPairPart appends an extraction of element `part` (0 or 1) from a preceding pair
// load.
func (g *Graph) BuildLoadPairPart(blk BlockID, typ DataType, pairLoad InstID, part int) InstID {
	inst := g.bind(g.NewInst(OpcodeLoadPairPart, typ), pairLoad)
	inst.pairIndex = part
	g.AppendInst(blk, inst)
	return inst.id
}
