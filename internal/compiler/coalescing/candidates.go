package coalescing

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// access describes one candidate array memory op in a form pairable compares cheaply (spec
// 4.4 "Pair collection").
type access struct {
	inst   compilerapi.InstID
	isLoad bool
	base   compilerapi.InstID
	typ    compilerapi.DataType

	constIdx    int64
	hasConstIdx bool
	idxInst     compilerapi.InstID // valid when !hasConstIdx

	value compilerapi.InstID // store value input; InstIDInvalid for loads
}

// classify reports the access shape of inst, and whether its element type is eligible for
// coalescing at all (spec 4.4's accepted-type list, extended with reference only when object
// coalescing is enabled).
func classify(g *compilerapi.Graph, inst *compilerapi.Inst, allowRef bool) (access, bool) {
	var a access
	switch inst.Opcode() {
	case compilerapi.OpcodeLoadArray:
		a = access{inst: inst.ID(), isLoad: true, base: inst.Input(0).Value(), typ: inst.Type(),
			idxInst: inst.Input(1).Value(), value: compilerapi.InstIDInvalid}
	case compilerapi.OpcodeLoadArrayI:
		a = access{inst: inst.ID(), isLoad: true, base: inst.Input(0).Value(), typ: inst.Type(),
			constIdx: inst.ConstIndex(), hasConstIdx: true, value: compilerapi.InstIDInvalid}
	case compilerapi.OpcodeStoreArray:
		a = access{inst: inst.ID(), isLoad: false, base: inst.Input(0).Value(), typ: g.Inst(inst.Input(2).Value()).Type(),
			idxInst: inst.Input(1).Value(), value: inst.Input(2).Value()}
	case compilerapi.OpcodeStoreArrayI:
		a = access{inst: inst.ID(), isLoad: false, base: inst.Input(0).Value(), typ: g.Inst(inst.Input(1).Value()).Type(),
			constIdx: inst.ConstIndex(), hasConstIdx: true, value: inst.Input(1).Value()}
	default:
		return access{}, false
	}
	if !acceptedType(a.typ, allowRef) {
		return access{}, false
	}
	return a, true
}

func acceptedType(t compilerapi.DataType, allowRef bool) bool {
	switch t {
	case compilerapi.TypeU32, compilerapi.TypeI32, compilerapi.TypeU64, compilerapi.TypeI64,
		compilerapi.TypeF32, compilerapi.TypeF64, compilerapi.TypeAny:
		return true
	case compilerapi.TypeReference:
		return allowRef
	default:
		return false
	}
}

// pairKey is the normalized index identity used to test "differ by exactly one": for a
// constant index, base is the reserved constKeyBase sentinel and diff is the index itself; for
// a dynamic index, base/diff come from variable analysis.
type pairKey struct {
	base compilerapi.InstID
	diff int64
}

const constKeyBase = compilerapi.InstIDInvalid

func (a access) key(va *variableAnalyzer) pairKey {
	if a.hasConstIdx {
		return pairKey{base: constKeyBase, diff: a.constIdx}
	}
	v := va.baseOf(a.idxInst)
	return pairKey{base: v.base, diff: v.diff}
}

// candidatePair holds two accesses found pairable, ordered by program position (first precedes
// second in the block's instruction list).
type candidatePair struct {
	first, second access
	lowIsFirst    bool // whether `first` carries the lower index (so its value becomes v0)
}

// collectPairs finds every coalescable pair within blk, honoring the invalidation rules from
// spec 4.4: a barrier (call, volatile access, OSR safepoint) invalidates every open candidate;
// a plain SaveState/SafePoint invalidates open store candidates only (loads are still safe to
// reorder across a pure snapshot point; per the original's PairCreatorVisitor, only stores can
// observe a difference in timing relative to a deopt/GC snapshot).
func collectPairs(g *compilerapi.Graph, blk *compilerapi.BasicBlock, va *variableAnalyzer, aa *liveness.AliasAnalyzer, allowRef bool) []candidatePair {
	var open []access
	var pairs []candidatePair
	paired := map[compilerapi.InstID]bool{}

	invalidateStores := func() {
		kept := open[:0]
		for _, c := range open {
			if c.isLoad {
				kept = append(kept, c)
			}
		}
		open = kept
	}

	for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		inst := g.Inst(cur)
		if paired[cur] {
			continue
		}

		if inst.Flags().Has(compilerapi.FlagBarrier) && !isCandidateStore(inst) {
			open = nil
			continue
		}
		isOSRSafepoint := inst.Opcode().IsSaveState() && blk.Flags().Has(compilerapi.BlockOSREntry)
		if inst.Opcode() == compilerapi.OpcodeSaveStateDeoptimize || isOSRSafepoint {
			open = nil
			continue
		}
		if inst.Opcode().IsSaveState() {
			invalidateStores()
			continue
		}

		cand, ok := classify(g, inst, allowRef)
		if !ok {
			if inst.Flags().Has(compilerapi.FlagIsStore) {
				// A store this pass does not recognize as a pairable opcode, and that carries no
				// barrier flag (a barrier store already cleared every candidate above), still
				// writes memory, so it can invalidate an open candidate it may alias; an
				// unrecognized load (e.g. LoadObject) is a pure read and invalidates nothing.
				open = invalidateAliasing(open, inst.ID(), g, aa)
			}
			continue
		}

		// Reverse-candidate order: try the most recently opened candidate first, matching the
		// original's greedy nearest-neighbor pairing.
		matchedIdx := -1
		var matchedRel pairRelation
		for i := len(open) - 1; i >= 0; i-- {
			if _, rel := pairable(cand, open[i], va, aa); rel != pairUnrelated {
				if movementRangeOK(g, blk, open[i], cand, aa) {
					matchedIdx, matchedRel = i, rel
					break
				}
			}
		}
		if matchedIdx >= 0 {
			// pairable was called as pairable(cand, open[matchedIdx], ...): its first argument
			// is cand (program order: second), its second argument is open[matchedIdx] (program
			// order: first) — so pairSecondLow means `first` carries the low index here.
			first := open[matchedIdx]
			pairs = append(pairs, candidatePair{first: first, second: cand, lowIsFirst: matchedRel == pairSecondLow})
			paired[first.inst] = true
			paired[cand.inst] = true
			open = append(open[:matchedIdx], open[matchedIdx+1:]...)
			continue
		}

		// A new store invalidates any open candidate (load or store) it may alias, since
		// coalescing two instructions bracketing it would change this store's observed
		// ordering relative to them; a new load is a pure read and invalidates nothing (spec
		// 4.4's invalidation rules only ever name stores as the thing that breaks a pairing).
		if !cand.isLoad {
			open = invalidateAliasing(open, inst.ID(), g, aa)
		}
		open = append(open, cand)
	}
	return pairs
}

func isCandidateStore(inst *compilerapi.Inst) bool {
	switch inst.Opcode() {
	case compilerapi.OpcodeStoreArray, compilerapi.OpcodeStoreArrayI:
		return true
	default:
		return false
	}
}

type pairRelation int

const (
	pairUnrelated pairRelation = iota
	pairFirstLow
	pairSecondLow
)

// pairable reports whether cand and other can coalesce, and which one carries the lower index.
// Both must be the same kind (load/load or store/store), alias the same array, share an
// accepted-and-matching element type, and have index keys differing by exactly one (spec 4.4);
// a constant-indexed pair additionally requires the lower index to be even (alignment).
func pairable(cand, other access, va *variableAnalyzer, aa *liveness.AliasAnalyzer) (access, pairRelation) {
	if cand.isLoad != other.isLoad || cand.typ != other.typ {
		return access{}, pairUnrelated
	}
	if aa.CheckRefAlias(cand.base, other.base) != liveness.MustAlias {
		return access{}, pairUnrelated
	}
	ck, ok2 := cand.key(va), other.key(va)
	if ck.base != ok2.base {
		return access{}, pairUnrelated
	}
	switch ck.diff - ok2.diff {
	case 1:
		if cand.hasConstIdx && ok2.diff%2 != 0 {
			return access{}, pairUnrelated
		}
		return other, pairSecondLow
	case -1:
		if cand.hasConstIdx && ck.diff%2 != 0 {
			return access{}, pairUnrelated
		}
		return cand, pairFirstLow
	default:
		return access{}, pairUnrelated
	}
}

// invalidateAliasing drops every open candidate that may alias the memory footprint of newInst,
// reflecting that a possibly-conflicting access between two candidates forbids coalescing them.
func invalidateAliasing(open []access, newInst compilerapi.InstID, g *compilerapi.Graph, aa *liveness.AliasAnalyzer) []access {
	kept := open[:0]
	for _, c := range open {
		if aa.CheckInstAlias(c.inst, newInst) == liveness.NoAlias {
			kept = append(kept, c)
		}
	}
	return kept
}

// movementRangeOK re-validates, at the moment a pairing is accepted, that nothing between
// first and second in program order blocks merging them into one instruction at either
// position (spec 4.4 "Movement ranges": upper_after(first)/lower_after(second)). Folding a
// load pair moves the second load's effective read time up to the first's position, so only an
// intervening aliasing *write* can change what it would observe; folding a store pair moves the
// first store's write out to cover the second's effective time too, so an intervening aliasing
// read OR write — which could observe the in-between state that no longer exists once merged —
// blocks it. A plain SaveState in between blocks a store pair but not a load pair (the
// deoptimizing and OSR safepoints have already retired every candidate during collection).
// Candidate collection retires a candidate when an aliasing write is seen (see
// invalidateAliasing) but not when an aliasing read is; this walk is what rejects a store pair
// with an aliasing load between its two stores.
func movementRangeOK(g *compilerapi.Graph, blk *compilerapi.BasicBlock, first, second access, aa *liveness.AliasAnalyzer) bool {
	pairingLoads := first.isLoad
	for cur := g.Inst(first.inst).Next(); cur != compilerapi.InstIDInvalid && cur != second.inst; cur = g.Inst(cur).Next() {
		inst := g.Inst(cur)
		if inst.Flags().Has(compilerapi.FlagBarrier) && !isCandidateStore(inst) {
			return false
		}
		if inst.Opcode().IsSaveState() && !pairingLoads {
			return false
		}
		if cand, ok := classify(g, inst, true); ok {
			if aa.CheckRefAlias(cand.base, first.base) == liveness.NoAlias {
				continue
			}
			if pairingLoads && cand.isLoad {
				continue // a pure read in between two loads being merged observes nothing new
			}
			return false
		}
	}
	return true
}
