package regalloc

// colorGraph performs spec 4.5's "Coloring" step over every non-fixed node in ig: walk nodes in
// reverse Lex-BFS order and, for each, pick the lowest free color among its interfering
// neighbors' colors and its interfering neighbors' biases' colors, inheriting the node's own
// bias's color when that is already free, and preferring callee-saved registers when the
// node's bias carries any callsite intersection. Interference never crosses a RegClass
// boundary (buildInterferenceGraph only links same-class nodes), so one combined pass over all
// classes colors each bank independently without extra bookkeeping. Returns every node that
// could not be colored this pass, for the spill loop to split.
func colorGraph(ig *InterferenceGraph, cfg Config) []*colorNode {
	order := lexBFS(ig)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	var uncolored []*colorNode
	for _, n := range order {
		if n.fixed {
			continue
		}

		used := map[int]bool{}
		biasUsed := map[int]bool{}
		for _, m := range ig.nodes {
			if m == n || !ig.interferesWith(n, m) {
				continue
			}
			if m.color != noColor {
				used[m.color] = true
			}
			if m.bias >= 0 && ig.biases[m.bias].color != noColor {
				biasUsed[ig.biases[m.bias].color] = true
			}
		}

		if n.bias >= 0 {
			if b := ig.biases[n.bias]; b.color != noColor && !used[b.color] {
				n.color = b.color
				continue
			}
		}

		numRegs := cfg.NumRegisters[n.class]
		calleeStart := cfg.CalleeSavedStart[n.class]
		reserved := cfg.reserved(n.class)
		preferCallee := n.csCount > 0 || (n.bias >= 0 && ig.biases[n.bias].csCount > 0)

		chosen := noColor
		if preferCallee {
			chosen = firstFree(calleeStart, numRegs, used, biasUsed, reserved)
			if chosen == noColor {
				chosen = firstFree(0, calleeStart, used, biasUsed, reserved)
			}
		} else {
			chosen = firstFree(0, numRegs, used, biasUsed, reserved)
		}

		if chosen == noColor {
			uncolored = append(uncolored, n)
			continue
		}
		n.color = chosen
		if n.bias >= 0 && ig.biases[n.bias].color == noColor {
			ig.biases[n.bias].color = chosen
		}
	}
	return uncolored
}

func firstFree(start, end int, used, biasUsed map[int]bool, reserved map[uint32]bool) int {
	for c := start; c < end; c++ {
		if reserved[uint32(c)] || used[c] || biasUsed[c] {
			continue
		}
		return c
	}
	return noColor
}
