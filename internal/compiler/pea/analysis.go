package pea

import (
	"fmt"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
)

// maxLoopRevisits bounds the header-fixpoint re-iteration the spec calls for in section 4.2
// ("Loops" — "bounded by nesting depth <= 5; give up otherwise"). This implementation applies
// the bound to the whole function's re-iteration count rather than per individual loop nest
// (see DESIGN.md): re-running the full RPO pass is simpler than tracking per-loop visitation
// order and converges to the same fixpoint for the programs this analysis targets.
const maxLoopRevisits = 5

// Result is everything scalar replacement needs (spec section 4.3, "Consumes PEA output").
type Result struct {
	// Aliases maps an instruction whose value pea proved equals some StateOwner (a
	// LoadObject/LoadArrayI hit, a NullCheck pass-through) to that owner.
	Aliases map[compilerapi.InstID]StateOwner
	// FoldedCompares records CompareRef instructions pea proved constant, and to what value.
	FoldedCompares map[compilerapi.InstID]bool
	// PhisByBlock lists the synthetic phis scheduled at each block.
	PhisByBlock map[compilerapi.BlockID][]*PhiState
	// States is every VirtualState ever allocated, keyed by id.
	States map[StateID]*VirtualState
	// MaterializationSite gives the unique site a VirtualState was materialized at, if any;
	// a state with no entry here was never observed and its allocation can be elided
	// outright (spec invariant: "either the abstract state transitively contains its
	// object or it has been materialized at a uniquely identified materialization site").
	MaterializationSite map[StateID]MaterializationSite
	// SaveStateVirtualized records, per SaveState-family instruction, which input indices
	// referred to a still-virtual value at that point (spec 4.2's SaveState transfer
	// function).
	SaveStateVirtualized map[compilerapi.InstID][]bool
	// VirtualAllocs is every NewObject/NewArray/InitObject instruction that was virtualized
	// (whether or not it was ultimately (re)materialized somewhere).
	VirtualAllocs []compilerapi.InstID
	// ConsumedStores is every StoreObject/StoreArrayI instruction pea folded into a
	// VirtualState's Fields map instead of leaving on the heap; scalar replacement deletes
	// these outright; a materialized state gets its field stores replayed fresh instead.
	ConsumedStores []compilerapi.InstID
	// DecomposedDeopts is every DeoptimizeIf the pre-pass split into branch + Deoptimize.
	DecomposedDeopts []DecomposedDeopt
}

// Analyzer runs partial escape analysis over a Graph (spec section 4.2).
type Analyzer struct {
	g  *compilerapi.Graph
	rt compilerapi.Runtime

	nextStateID StateID
	nextPhiID   int

	exitHeap map[compilerapi.BlockID]*blockHeap

	// seenAlloc/seenStore dedupe VirtualAllocs/ConsumedStores across the loop-header
	// re-iteration rounds in Run: every round re-walks the whole function in RPO order, so
	// without this the same instruction would otherwise be recorded once per round.
	seenAlloc map[compilerapi.InstID]bool
	seenStore map[compilerapi.InstID]bool

	result *Result
}

// NewAnalyzer prepares an Analyzer for g, querying class/field facts through rt.
func NewAnalyzer(g *compilerapi.Graph, rt compilerapi.Runtime) *Analyzer {
	return &Analyzer{
		g:           g,
		seenAlloc:   map[compilerapi.InstID]bool{},
		seenStore:   map[compilerapi.InstID]bool{},
		rt:          rt,
		nextStateID: MaterializedID + 1,
		exitHeap:    map[compilerapi.BlockID]*blockHeap{},
		result: &Result{
			Aliases:              map[compilerapi.InstID]StateOwner{},
			FoldedCompares:       map[compilerapi.InstID]bool{},
			PhisByBlock:          map[compilerapi.BlockID][]*PhiState{},
			States:               map[StateID]*VirtualState{},
			MaterializationSite:  map[StateID]MaterializationSite{},
			SaveStateVirtualized: map[compilerapi.InstID][]bool{},
		},
	}
}

// Run executes the analysis and returns its Result. It never fails the compile for ordinary
// programs (spec 4.2, "Escape analysis never fails the compile"); the one exception is the
// loop-nesting-depth budget, surfaced as *compilerapi.PassCannotComplete so the pipeline can
// skip scalar replacement for this compile.
func (a *Analyzer) Run() (*Result, error) {
	a.result.DecomposedDeopts = decomposeDeopts(a.g)

	order := a.g.RPOBlocks()
	hasLoop := false
	for _, blk := range order {
		if blk.Loop() != nil {
			hasLoop = true
			break
		}
	}

	revisits := 1
	if hasLoop {
		revisits = maxLoopRevisits
	}

	var changed bool
	for round := 0; round < revisits; round++ {
		changed = false
		for _, blk := range order {
			entry := a.mergeStates(blk)
			exit := entry.clone()
			for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = a.g.Inst(cur).Next() {
				a.transfer(exit, a.g.Inst(cur))
			}
			prev, existed := a.exitHeap[blk.ID()]
			a.exitHeap[blk.ID()] = exit
			if !existed || !heapsEqual(prev, exit) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	if hasLoop && changed {
		return a.result, &compilerapi.PassCannotComplete{
			Pass:   "pea",
			Reason: fmt.Sprintf("loop header state did not converge within %d rounds", maxLoopRevisits),
		}
	}

	for id, vs := range a.statesByID() {
		a.result.States[id] = vs
	}
	return a.result, nil
}

func (a *Analyzer) statesByID() map[StateID]*VirtualState {
	all := map[StateID]*VirtualState{}
	for _, heap := range a.exitHeap {
		for id, vs := range heap.states {
			all[id] = vs
		}
	}
	return all
}

func heapsEqual(a, b *blockHeap) bool {
	if len(a.stateOf) != len(b.stateOf) {
		return false
	}
	for k, v := range a.stateOf {
		if b.stateOf[k] != v {
			return false
		}
	}
	return true
}

// mergeStates computes blk's entry abstract heap from its predecessors' exit heaps,
// implementing the multi-step algorithm of spec section 4.2.
func (a *Analyzer) mergeStates(blk *compilerapi.BasicBlock) *blockHeap {
	if blk.Preds() == 0 {
		return newBlockHeap()
	}

	preds := make([]*blockHeap, blk.Preds())
	anyMissing := false
	for i := 0; i < blk.Preds(); i++ {
		h, ok := a.exitHeap[blk.PredBlock(i)]
		if !ok {
			anyMissing = true
			h = newBlockHeap()
		}
		preds[i] = h
	}
	if anyMissing {
		// Back edge of a not-yet-visited loop header: fall back to an empty entry state
		// for this round; the next round (bounded by maxLoopRevisits) re-merges with real
		// predecessor data once it exists.
		return newBlockHeap()
	}

	entry := newBlockHeap()

	// Step 1: reference-typed phis.
	for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = a.g.Inst(cur).Next() {
		inst := a.g.Inst(cur)
		if inst.Opcode() != compilerapi.OpcodePhi || !inst.Type().IsReference() {
			continue
		}
		a.mergePhiAllocation(blk, inst, preds, entry)
	}

	// Step 2: live-in instructions with a tracked state (approximated as "appears in any
	// predecessor's heap"; see DESIGN.md for the conservative-superset rationale).
	seen := map[compilerapi.InstID]bool{}
	for _, h := range preds {
		for v := range h.stateOf {
			if seen[v] {
				continue
			}
			seen[v] = true
			a.mergeLiveIn(blk, v, preds, entry)
		}
	}

	return entry
}

func (a *Analyzer) mergePhiAllocation(blk *compilerapi.BasicBlock, phi *compilerapi.Inst, preds []*blockHeap, entry *blockHeap) {
	inputs := phi.PhiInputs()
	var states []*VirtualState
	allVirtual := true
	for i, in := range inputs {
		if in == compilerapi.InstIDInvalid {
			allVirtual = false
			break
		}
		vs, ok := preds[i].stateFor(in)
		if !ok {
			allVirtual = false
			break
		}
		states = append(states, vs)
	}
	if !allVirtual || len(states) == 0 {
		a.materializePhiInputsAtPreds(blk, phi, preds)
		return
	}
	rep := states[0]
	ctorMatches := true
	for _, vs := range states[1:] {
		if len(vs.CtorInputs) != len(rep.CtorInputs) {
			ctorMatches = false
			break
		}
		for i := range vs.CtorInputs {
			if vs.CtorInputs[i] != rep.CtorInputs[i] {
				ctorMatches = false
				break
			}
		}
	}
	if !ctorMatches {
		// Open question (spec section 9): divergent ctor inputs across branches. This
		// implementation falls back to materializing every branch rather than threading a
		// phi through the constructor arguments themselves.
		a.materializePhiInputsAtPreds(blk, phi, preds)
		return
	}

	id := a.nextStateID
	a.nextStateID++
	merged := newVirtualState(id, phi.ID())
	merged.Class = rep.Class
	merged.IsArray = rep.IsArray
	merged.ArrayElemType = rep.ArrayElemType
	merged.CtorInputs = append([]compilerapi.InstID(nil), rep.CtorInputs...)

	allFields := map[Field]bool{}
	for _, vs := range states {
		for _, f := range vs.FieldOrder {
			allFields[f] = true
		}
	}
	for f := range allFields {
		var owners []StateOwner
		diverge := false
		for _, vs := range states {
			o := vs.getField(f)
			owners = append(owners, o)
			if len(owners) > 1 && !o.Equal(owners[0]) {
				diverge = true
			}
		}
		if !diverge {
			merged.setField(f, owners[0])
			continue
		}
		ps := &PhiState{ID: a.nextPhiID, Block: blk.ID(), Type: compilerapi.TypeReference, Inputs: owners}
		a.nextPhiID++
		a.result.PhisByBlock[blk.ID()] = append(a.result.PhisByBlock[blk.ID()], ps)
		merged.setField(f, OwnerOfPhi(ps))
	}

	entry.states[id] = merged
	entry.stateOf[phi.ID()] = id
}

func (a *Analyzer) materializePhiInputsAtPreds(blk *compilerapi.BasicBlock, phi *compilerapi.Inst, preds []*blockHeap) {
	for i, in := range phi.PhiInputs() {
		if in == compilerapi.InstIDInvalid {
			continue
		}
		a.materializeValue(preds[i], in, siteAtBlockTail(blk.PredBlock(i)))
	}
}

func (a *Analyzer) mergeLiveIn(blk *compilerapi.BasicBlock, v compilerapi.InstID, preds []*blockHeap, entry *blockHeap) {
	var common StateID = MaterializedID
	first := true
	mixed := false
	for _, h := range preds {
		id := h.stateOf[v]
		if first {
			common = id
			first = false
		} else if id != common {
			mixed = true
		}
	}
	if !mixed {
		if common == MaterializedID {
			return
		}
		var vs *VirtualState
		for _, h := range preds {
			if s, ok := h.states[common]; ok {
				vs = s
				break
			}
		}
		if vs == nil {
			return
		}
		entry.states[common] = vs
		entry.stateOf[v] = common
		return
	}
	for i, h := range preds {
		a.materializeValue(h, v, siteAtBlockTail(blk.PredBlock(i)))
	}
	entry.stateOf[v] = MaterializedID
}

// transfer applies inst's opcode-specific effect to state (spec section 4.2's "Instruction
// transfer functions").
func (a *Analyzer) transfer(state *blockHeap, inst *compilerapi.Inst) {
	switch inst.Opcode() {
	case compilerapi.OpcodeNewObject, compilerapi.OpcodeNewArray, compilerapi.OpcodeInitObject:
		a.transferAlloc(state, inst)
	case compilerapi.OpcodeLoadObject:
		a.transferLoadObject(state, inst)
	case compilerapi.OpcodeStoreObject:
		a.transferStoreObject(state, inst)
	case compilerapi.OpcodeLoadArrayI:
		a.transferLoadArrayI(state, inst)
	case compilerapi.OpcodeStoreArrayI:
		a.transferStoreArrayI(state, inst)
	case compilerapi.OpcodeLoadArray, compilerapi.OpcodeStoreArray:
		// A non-constant index forces materialization of the base array (spec 4.2).
		a.materializeInputs(state, inst)
	case compilerapi.OpcodeNullCheck:
		a.transferNullCheck(state, inst)
	case compilerapi.OpcodeCompareRef:
		a.transferCompareRef(state, inst)
	case compilerapi.OpcodeSaveState, compilerapi.OpcodeSafePoint, compilerapi.OpcodeSaveStateDeoptimize:
		a.transferSaveState(state, inst)
	case compilerapi.OpcodeDeoptimize, compilerapi.OpcodeDeoptimizeIf:
		a.transferDeoptimize(state, inst)
	default:
		a.materializeInputs(state, inst)
		if inst.Type().IsReference() {
			state.stateOf[inst.ID()] = MaterializedID
		}
	}
}

func (a *Analyzer) transferAlloc(state *blockHeap, inst *compilerapi.Inst) {
	instantiable, err1 := a.rt.IsInstantiable(inst.Class())
	replaceable, err2 := a.rt.CanScalarReplaceObject(inst.Class())
	if err1 != nil || err2 != nil || !instantiable || !replaceable || inst.Flags().Has(compilerapi.FlagCatchInput) {
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	id := a.nextStateID
	a.nextStateID++
	vs := newVirtualState(id, inst.ID())
	vs.Class = inst.Class()
	if inst.Opcode() == compilerapi.OpcodeNewArray {
		vs.IsArray = true
		vs.ArrayElemType = inst.ArrayElemType()
	}
	for n := 0; n < inst.NumInputs(); n++ {
		vs.CtorInputs = append(vs.CtorInputs, inst.Input(n).Value())
	}
	state.states[id] = vs
	state.stateOf[inst.ID()] = id
	if !a.seenAlloc[inst.ID()] {
		a.seenAlloc[inst.ID()] = true
		a.result.VirtualAllocs = append(a.result.VirtualAllocs, inst.ID())
	}
}

func (a *Analyzer) transferLoadObject(state *blockHeap, inst *compilerapi.Inst) {
	obj := inst.Input(0).Value()
	vs, ok := state.stateFor(obj)
	if !ok {
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	owner := vs.getField(ObjectField(inst.Field()))
	a.recordAlias(state, vs, inst.ID(), owner)
}

func (a *Analyzer) transferStoreObject(state *blockHeap, inst *compilerapi.Inst) {
	obj := inst.Input(0).Value()
	vs, ok := state.stateFor(obj)
	if !ok {
		a.materializeValue(state, inst.Input(1).Value(), a.siteBeforeInst(inst))
		return
	}
	vs.setField(ObjectField(inst.Field()), ownerOfValue(inst.Input(1).Value()))
	a.recordConsumedStore(inst.ID())
}

func (a *Analyzer) transferLoadArrayI(state *blockHeap, inst *compilerapi.Inst) {
	arr := inst.Input(0).Value()
	vs, ok := state.stateFor(arr)
	if !ok {
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	owner := vs.getField(ArrayElement(0, inst.ConstIndex()))
	a.recordAlias(state, vs, inst.ID(), owner)
}

func (a *Analyzer) transferStoreArrayI(state *blockHeap, inst *compilerapi.Inst) {
	arr := inst.Input(0).Value()
	vs, ok := state.stateFor(arr)
	if !ok {
		a.materializeValue(state, inst.Input(1).Value(), a.siteBeforeInst(inst))
		return
	}
	vs.setField(ArrayElement(0, inst.ConstIndex()), ownerOfValue(inst.Input(1).Value()))
	a.recordConsumedStore(inst.ID())
}

func (a *Analyzer) recordConsumedStore(id compilerapi.InstID) {
	if a.seenStore[id] {
		return
	}
	a.seenStore[id] = true
	a.result.ConsumedStores = append(a.result.ConsumedStores, id)
}

func (a *Analyzer) transferNullCheck(state *blockHeap, inst *compilerapi.Inst) {
	ref := inst.Input(0).Value()
	vs, ok := state.stateFor(ref)
	if !ok {
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	a.recordAlias(state, vs, inst.ID(), OwnerOfInst(ref))
}

func (a *Analyzer) transferCompareRef(state *blockHeap, inst *compilerapi.Inst) {
	if inst.Cond() != compilerapi.CondEQ && inst.Cond() != compilerapi.CondNE {
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	x, y := inst.Input(0).Value(), inst.Input(1).Value()
	xs, xok := state.stateFor(x)
	ys, yok := state.stateFor(y)
	if xok && yok {
		same := xs.ID == ys.ID
		a.result.FoldedCompares[inst.ID()] = same == (inst.Cond() == compilerapi.CondEQ)
		state.stateOf[inst.ID()] = MaterializedID
		return
	}
	// Open question (spec section 9): exactly one side virtual. This implementation
	// materializes both sides rather than attempting the source's conditional-aliasing
	// rule, which the spec flags as unresolved pending behavioral tests.
	if xok {
		a.materializeValue(state, x, a.siteBeforeInst(inst))
	}
	if yok {
		a.materializeValue(state, y, a.siteBeforeInst(inst))
	}
	state.stateOf[inst.ID()] = MaterializedID
}

func (a *Analyzer) transferSaveState(state *blockHeap, inst *compilerapi.Inst) {
	bitmap := make([]bool, inst.NumInputs())
	for n := 0; n < inst.NumInputs(); n++ {
		v := inst.Input(n).Value()
		if v == compilerapi.InstIDInvalid {
			continue
		}
		if _, ok := state.stateFor(v); ok {
			bitmap[n] = true
		}
	}
	a.result.SaveStateVirtualized[inst.ID()] = bitmap
	state.stateOf[inst.ID()] = MaterializedID
}

func (a *Analyzer) transferDeoptimize(state *blockHeap, inst *compilerapi.Inst) {
	var ss compilerapi.InstID
	if inst.Opcode() == compilerapi.OpcodeDeoptimize {
		ss = inst.Input(0).Value()
	} else {
		ss = inst.Input(1).Value()
	}
	for ss != compilerapi.InstIDInvalid {
		ssInst := a.g.Inst(ss)
		for n := 0; n < ssInst.NumInputs(); n++ {
			a.materializeValue(state, ssInst.Input(n).Value(), a.siteBeforeInst(inst))
		}
		if ssInst.SaveState() == nil {
			break
		}
		ss = ssInst.SaveState().CallerCall
	}
}

func (a *Analyzer) materializeInputs(state *blockHeap, inst *compilerapi.Inst) {
	for n := 0; n < inst.NumInputs(); n++ {
		a.materializeValue(state, inst.Input(n).Value(), a.siteBeforeInst(inst))
	}
}

// siteBeforeInst pins a materialization to immediately before inst: the instruction's own
// block plus its predecessor in list order (InstIDInvalid if inst is the block's first
// instruction, meaning "at the head of the block").
func (a *Analyzer) siteBeforeInst(inst *compilerapi.Inst) MaterializationSite {
	return MaterializationSite{AfterInst: inst.Prev(), Block: inst.Block()}
}

func ownerOfValue(v compilerapi.InstID) StateOwner {
	if v == compilerapi.InstIDInvalid {
		return Zero()
	}
	return OwnerOfInst(v)
}

func (a *Analyzer) recordAlias(state *blockHeap, vs *VirtualState, inst compilerapi.InstID, owner StateOwner) {
	a.result.Aliases[inst] = owner
	vs.Aliases = append(vs.Aliases, inst)
	if owner.Kind == OwnerInst {
		if os, ok := state.stateFor(owner.Inst); ok {
			state.stateOf[inst] = os.ID
			return
		}
	}
	state.stateOf[inst] = MaterializedID
}

// materializeValue forces v (and, transitively, any virtual object reachable through its
// fields) onto the heap at site, recording a MaterializationSite for its VirtualState. A
// state already materialized, or not tracked at all, is a no-op.
func (a *Analyzer) materializeValue(state *blockHeap, v compilerapi.InstID, site MaterializationSite) {
	if v == compilerapi.InstIDInvalid {
		return
	}
	vs, ok := state.stateFor(v)
	if !ok {
		return
	}
	if _, already := a.result.MaterializationSite[vs.ID]; already {
		state.stateOf[v] = MaterializedID
		return
	}
	a.result.MaterializationSite[vs.ID] = site
	state.stateOf[v] = MaterializedID
	for _, alias := range vs.Aliases {
		state.stateOf[alias] = MaterializedID
	}
	for _, f := range vs.FieldOrder {
		owner := vs.Fields[f]
		if owner.Kind == OwnerInst {
			a.materializeValue(state, owner.Inst, site)
		}
	}
}
