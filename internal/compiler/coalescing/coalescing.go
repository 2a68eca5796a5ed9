package coalescing

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// Result summarizes what Apply did, for tests and diagnostics.
type Result struct {
	PairsBuilt int
}

// Apply runs memory coalescing over g (spec section 4.4): variable analysis, per-block
// candidate collection, and replacement of every accepted pair with a single coalesced memory
// instruction. It is a no-op (zero pairs, nil error) when the target architecture does not
// support pair memory ops or the MemoryCoalescing option is off, matching the pass's stated
// precondition.
func Apply(g *compilerapi.Graph, opts compilerapi.Options) (*Result, error) {
	result := &Result{}
	if !opts.MemoryCoalescing || !g.Arch.SupportsMemoryPairs {
		return result, nil
	}

	va := newVariableAnalyzer(g)
	va.analyze()
	aa := liveness.NewAliasAnalyzer(g)

	for _, blk := range g.RPOBlocks() {
		pairs := collectPairs(g, blk, va, aa, opts.MemoryCoalescingObjects)
		for _, p := range pairs {
			replacePair(g, blk.ID(), p)
			result.PairsBuilt++
		}
	}
	return result, nil
}

// replacePair builds the coalesced instruction at the position of the program-order-earlier
// original, wires its users (for loads, via two LoadPairPart extractions; stores have none),
// and removes both originals (spec 4.4 "Replacement": "unioning original barrier/throw flags").
// Since the new instruction's users are exactly the old instructions' users (after
// ReplaceUsers), any SaveState that captured a coalesced load's value automatically follows the
// rewrite without a separate re-bridging step; coalescing never touches a SaveState's own
// entries because stores never enter one as a tracked value.
func replacePair(g *compilerapi.Graph, blk compilerapi.BlockID, p candidatePair) {
	low, high := p.first, p.second
	if !p.lowIsFirst {
		low, high = p.second, p.first
	}

	// Place the pair right after the earlier original's predecessor, i.e. where `first` sat;
	// `first` always precedes `second` in program order by construction in collectPairs.
	placeAfter := g.Inst(p.first.inst).Prev()
	placement := compilerapi.PlacementHead(blk)
	if placeAfter != compilerapi.InstIDInvalid {
		placement = compilerapi.PlacementAfter(blk, placeAfter)
	}

	if low.isLoad {
		var pair compilerapi.InstID
		if low.hasConstIdx {
			pair = g.BuildLoadArrayPairIAt(placement, low.typ, low.base, low.constIdx)
		} else {
			pair = g.BuildLoadArrayPairAt(placement, low.typ, low.base, low.idxInst)
		}
		lo := g.BuildLoadPairPartAt(compilerapi.PlacementAfter(blk, pair), low.typ, pair, 0)
		hi := g.BuildLoadPairPartAt(compilerapi.PlacementAfter(blk, lo), high.typ, pair, 1)
		g.ReplaceUsers(low.inst, lo)
		g.ReplaceUsers(high.inst, hi)
		g.RemoveInst(low.inst, false)
		g.RemoveInst(high.inst, false)
		return
	}

	if low.hasConstIdx {
		g.BuildStoreArrayPairIAt(placement, low.base, low.constIdx, low.value, high.value)
	} else {
		g.BuildStoreArrayPairAt(placement, low.base, low.idxInst, low.value, high.value)
	}
	g.RemoveInst(low.inst, false)
	g.RemoveInst(high.inst, false)
}
