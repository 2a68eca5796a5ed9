// Package scalarreplace rewrites a Graph to act on a pea.Result: real phis replace synthetic
// PhiStates, cloned allocations replace VirtualStates that escaped, and every instruction pea
// proved aliases a symbolic value is redirected to that value and discarded (spec section 4.3).
package scalarreplace

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/pea"
)

// Result summarizes what Apply did, mostly for tests to assert against.
type Result struct {
	Materialized int
	Eliminated   int
	AliasesFixed int
}

// Apply rewrites g according to result, in the seven steps of spec section 4.3: allocate real
// phis, clone escaping allocations and their field stores, replace aliases, wire phi inputs,
// drop virtualized SaveState entries, bridge newly-live materializations back into surviving
// SaveStates, and insert casts where a phi's resolved inputs outgrew its own width.
func Apply(g *compilerapi.Graph, result *pea.Result) (*Result, error) {
	r := &replacer{
		g:           g,
		pr:          result,
		allocOf:     map[pea.StateID]compilerapi.InstID{},
		instState:   map[compilerapi.InstID]pea.StateID{},
		zeroConst:   map[compilerapi.DataType]compilerapi.InstID{},
		origSSInput: map[compilerapi.InstID][]compilerapi.InstID{},
	}
	for id, vs := range result.States {
		r.instState[vs.Alloc] = id
	}

	r.createPhis()
	r.captureSaveStateInputs()
	r.materializeObjects()
	r.removeConsumedStores()
	r.replaceAliases()
	r.resolvePhiInputs()
	r.eliminateDeadAllocs()
	r.updateSaveStates()
	r.patchSaveStateBridges()
	r.fixOversizedPhiInputs()

	return &Result{
		Materialized: len(r.allocOf),
		Eliminated:   r.eliminated,
		AliasesFixed: len(result.Aliases),
	}, nil
}

type replacer struct {
	g  *compilerapi.Graph
	pr *pea.Result

	allocOf   map[pea.StateID]compilerapi.InstID // state -> the concrete value now standing in for it
	instState map[compilerapi.InstID]pea.StateID // VirtualState.Alloc -> its state id
	zeroConst map[compilerapi.DataType]compilerapi.InstID

	// origSSInput remembers each SaveState's pre-rewrite input values, so
	// patchSaveStateBridges can tell which state a dropped entry used to point at.
	origSSInput map[compilerapi.InstID][]compilerapi.InstID

	eliminated int
}

// createPhis allocates a real phi for every synthetic PhiState before anything else runs, so
// later steps can always resolve an OwnerPhi through PhiState.Resolved.
func (r *replacer) createPhis() {
	for blk, phis := range r.pr.PhisByBlock {
		for _, ps := range phis {
			ps.Resolved = r.g.BuildPhiAt(blk, ps.Type)
		}
	}
}

// captureSaveStateInputs snapshots every tracked SaveState's input values before
// materializeObjects starts redirecting users, so a later dropped entry can still be traced
// back to the state it originally named (ReplaceUsers mutates the live input in place).
func (r *replacer) captureSaveStateInputs() {
	for ss := range r.pr.SaveStateVirtualized {
		inst := r.g.Inst(ss)
		vals := make([]compilerapi.InstID, inst.NumInputs())
		for n := 0; n < inst.NumInputs(); n++ {
			vals[n] = inst.Input(n).Value()
		}
		r.origSSInput[ss] = vals
	}
}

// materializeObjects clones every VirtualState pea recorded a MaterializationSite for: first
// the bare allocation (so forward/self references between sibling states resolve), then its
// field stores in FieldOrder.
func (r *replacer) materializeObjects() {
	for id, site := range r.pr.MaterializationSite {
		vs, ok := r.pr.States[id]
		if !ok {
			continue
		}
		placement := r.placementFor(site)
		var alloc compilerapi.InstID
		if vs.IsArray {
			length := compilerapi.InstIDInvalid
			if len(vs.CtorInputs) > 0 {
				length = r.resolveInst(vs.CtorInputs[0])
			}
			alloc = r.g.BuildNewArrayAt(placement, vs.Class, vs.ArrayElemType, length)
		} else {
			alloc = r.g.BuildNewObjectAt(placement, vs.Class)
		}
		r.allocOf[id] = alloc
	}

	for id, site := range r.pr.MaterializationSite {
		vs, ok := r.pr.States[id]
		if !ok {
			continue
		}
		alloc := r.allocOf[id]
		blk := site.Block
		if site.AfterInst != compilerapi.InstIDInvalid {
			blk = r.g.Inst(site.AfterInst).Block()
		}
		cur := alloc
		for _, f := range vs.FieldOrder {
			val := r.resolveOwner(vs.Fields[f])
			after := compilerapi.PlacementAfter(blk, cur)
			if f.IsArray {
				cur = r.g.BuildStoreArrayIAt(after, alloc, f.ArrayIndex, val)
			} else {
				cur = r.g.BuildStoreObjectAt(after, alloc, f.ObjField, val)
			}
		}
		// Every other reference to the original allocation/phi (Call arguments, Return
		// values, surviving SaveState entries, ...) must follow the clone instead.
		r.g.ReplaceUsers(vs.Alloc, alloc)
	}
}

// removeConsumedStores deletes every StoreObject/StoreArrayI instruction pea folded into a
// VirtualState's Fields map instead of leaving on the heap: a materialized state gets fresh
// stores replayed by materializeObjects, so the original would otherwise survive as a
// redundant write to the clone.
func (r *replacer) removeConsumedStores() {
	for _, id := range r.pr.ConsumedStores {
		r.g.RemoveInst(id, false)
	}
}

// replaceAliases rewrites every instruction pea proved equals some StateOwner (a LoadObject
// hit, a NullCheck pass-through) to its resolved value and removes it.
func (r *replacer) replaceAliases() {
	for id, owner := range r.pr.Aliases {
		resolved := r.resolveOwner(owner)
		r.g.ReplaceUsers(id, resolved)
		r.g.RemoveInst(id, false)
	}
}

// resolvePhiInputs wires every resolved phi's predecessor inputs from its PhiState.
func (r *replacer) resolvePhiInputs() {
	for _, phis := range r.pr.PhisByBlock {
		for _, ps := range phis {
			for i, owner := range ps.Inputs {
				r.g.SetPhiInput(ps.Resolved, i, r.resolveOwner(owner))
			}
		}
	}
}

// eliminateDeadAllocs removes every VirtualState's original allocation/merge-phi instruction
// that now has no users: a state with a materialization site has already had its users
// redirected to the clone (materializeObjects); a state with none was never observed and its
// allocation can be elided outright (spec invariant, section 4.2).
func (r *replacer) eliminateDeadAllocs() {
	// A merged state's identity phi clearing can make its own branch allocations dead in
	// turn, so this runs to a fixpoint rather than a single pass (map iteration order over
	// States is unspecified, and a branch state may be visited before its merge phi).
	done := map[pea.StateID]bool{}
	for progress := true; progress; {
		progress = false
		for id, vs := range r.pr.States {
			if done[id] {
				continue
			}
			inst := r.g.Inst(vs.Alloc)
			if len(inst.Users()) != 0 {
				continue
			}
			if inst.Opcode() == compilerapi.OpcodePhi {
				r.g.ClearPhiInputs(vs.Alloc)
			}
			r.g.RemoveInst(vs.Alloc, true)
			done[id] = true
			r.eliminated++
			progress = true
		}
	}
}

// updateSaveStates drops virtualized entries from every SaveState/SafePoint/SaveStateDeoptimize
// pea observed (spec 4.3 step 5). An inlined call's SaveState keeps its arity: a dropped entry
// is replaced with a null constant instead of removed, since CallerCall chains key entries by
// position.
func (r *replacer) updateSaveStates() {
	for ss, bitmap := range r.pr.SaveStateVirtualized {
		inst := r.g.Inst(ss)
		sd := inst.SaveState()
		if sd == nil {
			continue
		}
		inlined := sd.CallerCall != compilerapi.InstIDInvalid
		entries := make([]compilerapi.SaveStateEntry, 0, inst.NumInputs())
		for n := 0; n < inst.NumInputs(); n++ {
			// Current, post-materialization value: any entry not dropped keeps whatever
			// materializeObjects/replaceAliases already redirected it to.
			cur := inst.Input(n).Value()
			vreg := sd.Entries[n].VReg
			if n < len(bitmap) && bitmap[n] {
				if inlined {
					entries = append(entries, compilerapi.SaveStateEntry{Value: r.nullConst(), VReg: vreg})
				}
				continue
			}
			entries = append(entries, compilerapi.SaveStateEntry{Value: cur, VReg: vreg})
		}
		r.g.RewriteSaveStateInputs(ss, entries)
	}
}

// patchSaveStateBridges re-adds a bridge input for every dropped SaveState entry whose state
// did end up materialized, so a deoptimization point downstream of the materialization site
// can still recover the value (spec 4.3 step 6). Entries belonging to a state that was never
// materialized need no bridge: the value is gone for good, which is exactly the elision the
// analysis proved safe.
func (r *replacer) patchSaveStateBridges() {
	for ss, bitmap := range r.pr.SaveStateVirtualized {
		values := r.origSSInput[ss]
		inst := r.g.Inst(ss)
		sd := inst.SaveState()
		if sd == nil || sd.CallerCall != compilerapi.InstIDInvalid {
			continue
		}
		for n, wasVirtual := range bitmap {
			if !wasVirtual || n >= len(values) {
				continue
			}
			stateID, ok := r.instState[values[n]]
			if !ok {
				continue
			}
			alloc, ok := r.allocOf[stateID]
			if !ok {
				continue
			}
			r.g.AppendBridge(ss, alloc, 0)
		}
	}
}

// fixOversizedPhiInputs inserts a Cast before any phi input whose numeric width exceeds the
// phi's own type, which a value/field phi synthesized across divergent branches can otherwise
// produce (spec 4.3 step 7).
func (r *replacer) fixOversizedPhiInputs() {
	for _, blk := range r.g.Blocks() {
		if !blk.Valid() {
			continue
		}
		for cur := blk.Root(); cur != compilerapi.InstIDInvalid; {
			inst := r.g.Inst(cur)
			next := inst.Next()
			if inst.Opcode() != compilerapi.OpcodePhi {
				cur = next
				continue
			}
			phiType := inst.Type()
			if !phiType.IsInt() && !phiType.IsFloat() {
				cur = next
				continue
			}
			for i, in := range inst.PhiInputs() {
				if in == compilerapi.InstIDInvalid {
					continue
				}
				producer := r.g.Inst(in)
				pt := producer.Type()
				if !pt.IsInt() && !pt.IsFloat() {
					continue
				}
				if producer.Opcode() == compilerapi.OpcodeIconst || producer.Opcode() == compilerapi.OpcodeFconst || producer.Opcode() == compilerapi.OpcodePhi {
					continue
				}
				if pt.Bits() <= phiType.Bits() {
					continue
				}
				predBlk := blk.PredBlock(i)
				cast := r.g.BuildCastAt(r.beforeTerminator(predBlk), phiType, in)
				r.g.SetPhiInput(cur, i, cast)
			}
			cur = next
		}
	}
}

// resolveInst follows id through any alias pea recorded for it (a Load/NullCheck result that
// itself resolved to some other owner) and returns the concrete value it should be replaced by.
func (r *replacer) resolveInst(id compilerapi.InstID) compilerapi.InstID {
	if id == compilerapi.InstIDInvalid {
		return id
	}
	if owner, ok := r.pr.Aliases[id]; ok {
		return r.resolveOwner(owner)
	}
	if stateID, ok := r.instState[id]; ok {
		if alloc, ok := r.allocOf[stateID]; ok {
			return alloc
		}
	}
	return id
}

// resolveOwner turns a StateOwner into a concrete instruction id: a real phi for OwnerPhi, a
// cached zero constant for OwnerZero, or resolveInst's chase for OwnerInst.
func (r *replacer) resolveOwner(o pea.StateOwner) compilerapi.InstID {
	switch o.Kind {
	case pea.OwnerPhi:
		return o.Phi.Resolved
	case pea.OwnerZero:
		return r.zero(compilerapi.TypeReference)
	default:
		return r.resolveInst(o.Inst)
	}
}

func (r *replacer) zero(typ compilerapi.DataType) compilerapi.InstID {
	if id, ok := r.zeroConst[typ]; ok {
		return id
	}
	start := r.g.StartBlock()
	var id compilerapi.InstID
	if typ.IsReference() || typ == compilerapi.TypePointer {
		id = r.g.BuildNullConst(start)
	} else if typ.IsFloat() {
		id = r.g.BuildFconst(start, typ, 0)
	} else {
		id = r.g.BuildIconst(start, typ, 0)
	}
	r.zeroConst[typ] = id
	return id
}

func (r *replacer) nullConst() compilerapi.InstID {
	return r.zero(compilerapi.TypeReference)
}

// placementFor translates a pea.MaterializationSite into the Placement scalar replacement
// actually splices at: AfterInst valid places right after it; AtTail places just before the
// block's outgoing branch (a predecessor feeding a merge still needs to run whatever it already
// runs before handing off); otherwise the site means "head of this block" (siteBeforeInst with
// the pinned instruction being its block's first).
func (r *replacer) placementFor(site pea.MaterializationSite) compilerapi.Placement {
	if site.AfterInst != compilerapi.InstIDInvalid {
		return compilerapi.PlacementAfter(r.g.Inst(site.AfterInst).Block(), site.AfterInst)
	}
	if site.AtTail {
		return r.beforeTerminator(site.Block)
	}
	return compilerapi.PlacementHead(site.Block)
}

func (r *replacer) beforeTerminator(blk compilerapi.BlockID) compilerapi.Placement {
	b := r.g.Block(blk)
	tail := b.Tail()
	if tail == compilerapi.InstIDInvalid {
		return compilerapi.PlacementHead(blk)
	}
	if r.g.Inst(tail).Flags().Has(compilerapi.FlagTerminator) {
		if prev := r.g.Inst(tail).Prev(); prev != compilerapi.InstIDInvalid {
			return compilerapi.PlacementAfter(blk, prev)
		}
		return compilerapi.PlacementHead(blk)
	}
	return compilerapi.PlacementAfter(blk, tail)
}
