package regalloc

import (
	"math"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// buildResult bundles a freshly built interference graph with the lookup the rest of the
// allocator needs: the node standing in for each live interval.
type buildResult struct {
	ig         *InterferenceGraph
	byInterval map[*liveness.LifeInterval]*colorNode
}

// buildInterferenceGraph constructs the interference graph over intervals (spec 4.5
// "Interference graph construction"). An active-list sweep (expire ended intervals, add edges
// to whatever is still active) and a direct pairwise intersection test over the same interval
// set produce the same edge set, since two same-class intervals interfere exactly when their
// ranges intersect regardless of which direction the comparison is driven from; the pairwise
// form is used here for simplicity, matching the "not optimized" tolerance this CORE's
// other dense-but-small analyses share.
func buildInterferenceGraph(intervals []*liveness.LifeInterval) *buildResult {
	ig := newInterferenceGraph()
	byInterval := make(map[*liveness.LifeInterval]*colorNode, len(intervals))

	for _, li := range intervals {
		n := &colorNode{interval: li, class: classOf(li.Type), color: noColor, bias: -1}
		if li.Physical {
			n.fixed = true
			n.color = int(li.PhysicalReg)
		} else if li.Location.Kind == compilerapi.LocationRegister {
			n.fixed = true
			n.color = int(li.Location.Reg)
		}
		ig.addNode(n)
		byInterval[li] = n
	}

	for i := 0; i < len(ig.nodes); i++ {
		for j := i + 1; j < len(ig.nodes); j++ {
			a, b := ig.nodes[i], ig.nodes[j]
			if a.class != b.class {
				continue
			}
			if a.interval.IntersectsWith(b.interval) {
				ig.addInterference(a, b)
			}
		}
	}

	return &buildResult{ig: ig, byInterval: byInterval}
}

// buildCallsiteClobbers records one callsite intersection on every interval whose live range
// covers a call instruction's position (spec 4.5: "record one callsite intersection per
// crossed physical range to feed biasing toward callee-saved registers"). This CORE has no
// separate catalog of caller-saved physical ranges, so a call instruction's own position
// stands in directly for "a physical range was crossed here".
func buildCallsiteClobbers(g *compilerapi.Graph, la *liveness.LivenessAnalyzer, ig *InterferenceGraph) {
	for _, blk := range g.RPOBlocks() {
		for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
			inst := g.Inst(cur)
			if !inst.Flags().Has(compilerapi.FlagIsCall) {
				continue
			}
			pos := la.PositionOf(cur)
			if pos == liveness.PositionInvalid {
				continue
			}
			for _, n := range ig.nodes {
				if n.fixed || n.interval == nil {
					continue
				}
				if n.interval.Covers(pos) {
					n.csCount++
				}
			}
		}
	}
}

// computeSpillWeights fills every non-fixed node's spill weight: the sum over its use
// positions of 1 / depth-adjusted distance, where loop depth increases the weight
// exponentially (spec 4.5), so a value used deep inside a loop is the allocator's last choice
// to spill.
func computeSpillWeights(la *liveness.LivenessAnalyzer, ig *InterferenceGraph) {
	for _, n := range ig.nodes {
		if n.fixed || n.interval == nil {
			continue
		}
		def := n.interval.Begin()
		var w float64
		for _, u := range n.interval.Uses {
			dist := float64(u.Pos - def)
			if dist < 1 {
				dist = 1
			}
			depth := la.LoopDepthAt(u.Pos)
			w += math.Pow(2, float64(depth)) / dist
		}
		n.spillWeight = w
	}
}
