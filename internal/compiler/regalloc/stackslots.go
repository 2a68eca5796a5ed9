package regalloc

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"

// assignStackSlots runs a second, independent coloring pass over every interval the spill loop
// placed on the stack, using cfg.MaxStackSlots colors (spec 4.5 "Stack slots"). There is no
// callee/caller distinction on the stack, so this is a plain reverse-Lex-BFS greedy coloring
// with no bias or callsite preference step.
func assignStackSlots(stacked []*liveness.LifeInterval, cfg Config) map[*liveness.LifeInterval]int {
	ig := newInterferenceGraph()
	nodes := make([]*colorNode, len(stacked))
	for i, li := range stacked {
		n := &colorNode{interval: li, color: noColor, bias: -1}
		ig.addNode(n)
		nodes[i] = n
	}
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[i].interval.IntersectsWith(nodes[j].interval) {
				ig.addInterference(nodes[i], nodes[j])
			}
		}
	}

	order := lexBFS(ig)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	for _, n := range order {
		used := map[int]bool{}
		for _, m := range ig.nodes {
			if m != n && ig.interferesWith(n, m) && m.color != noColor {
				used[m.color] = true
			}
		}
		for slot := 0; slot < cfg.MaxStackSlots; slot++ {
			if !used[slot] {
				n.color = slot
				break
			}
		}
	}

	result := make(map[*liveness.LifeInterval]int, len(nodes))
	for _, n := range nodes {
		result[n.interval] = n.color
	}
	return result
}
