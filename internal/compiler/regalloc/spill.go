package regalloc

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

const maxSpillRounds = 30

// runSpillLoop builds the interference graph, colors it, and on failure splits every
// uncolored interval around its use positions and retries, rebuilding from scratch each round
// (spec 4.5 "Spill loop"). A constant with no users moves directly to the stack instead of
// being split, since there is nothing to split around. Returns the graph and node map from the
// round that finally colored cleanly, plus any intervals forced to the stack along the way.
func runSpillLoop(g *compilerapi.Graph, la *liveness.LivenessAnalyzer, intervals []*liveness.LifeInterval, cfg Config) (*InterferenceGraph, map[*liveness.LifeInterval]*colorNode, []*liveness.LifeInterval, int, error) {
	worklist := intervals
	var forcedStack []*liveness.LifeInterval

	for round := 0; ; round++ {
		res := buildInterferenceGraph(worklist)
		buildCallsiteClobbers(g, la, res.ig)
		computeSpillWeights(la, res.ig)

		byPhys := map[RegClass]map[uint32]*colorNode{}
		buildAffinity(g, res.ig, res.byInterval, byPhys)
		computeBiases(res.ig)

		uncolored := colorGraph(res.ig, cfg)
		if len(uncolored) == 0 {
			return res.ig, res.byInterval, forcedStack, round + 1, nil
		}

		if cfg.BytecodeOptimizer {
			return nil, nil, nil, 0, &compilerapi.PassCannotComplete{
				Pass: "regalloc", Reason: "bytecode-optimizer mode has no splitting and coloring failed",
			}
		}
		if round >= maxSpillRounds {
			return nil, nil, nil, 0, &compilerapi.PassCannotComplete{
				Pass: "regalloc", Reason: "spill loop exceeded 30 rounds without a full coloring",
			}
		}

		uncoloredSet := make(map[*liveness.LifeInterval]bool, len(uncolored))
		for _, n := range uncolored {
			uncoloredSet[n.interval] = true
		}

		next := make([]*liveness.LifeInterval, 0, len(worklist))
		for _, li := range worklist {
			if !uncoloredSet[li] {
				next = append(next, li)
				continue
			}
			if len(li.Uses) == 0 {
				forcedStack = append(forcedStack, li)
				continue
			}
			next = append(next, splitAroundUses(li)...)
		}
		worklist = next
	}
}

// splitAroundUses breaks li into a shrunk interval covering only its definition plus one small
// interval per use position, chained through Sibling so the next round's affinity pass still
// biases them toward sharing a color (spec 4.5 "Sibling chains... form affinity edges").
func splitAroundUses(li *liveness.LifeInterval) []*liveness.LifeInterval {
	def := li.Begin()
	head := &liveness.LifeInterval{
		Value: li.Value, Type: li.Type,
		Ranges: []liveness.Range{{Begin: def, End: def + 1}},
	}
	out := []*liveness.LifeInterval{head}
	prev := head
	for _, u := range li.Uses {
		s := &liveness.LifeInterval{
			Value: li.Value, Type: li.Type,
			Ranges: []liveness.Range{{Begin: u.Pos - 1, End: u.Pos + 1}},
			Uses:   []liveness.UsePosition{u},
		}
		prev.Sibling = s
		prev = s
		out = append(out, s)
	}
	return out
}
