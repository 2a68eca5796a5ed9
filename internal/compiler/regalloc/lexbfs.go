package regalloc

// lexBFS computes a Lexicographic Breadth-First Search order over ig's interference adjacency
// (spec 4.5 "Coloring": "Order the nodes by reverse Lex-BFS (perfect elimination order for
// chordal graphs)"). Since live intervals form an interval graph, the interference graph built
// from them is chordal, so the reverse of this order is guaranteed to be a perfect elimination
// order: coloring greedily in that order never needs more colors than the graph's clique
// number.
//
// TODO: this is the textbook partition-refinement description implemented with a plain label
// slice and O(n) node selection per step (O(n^2) overall); a bucket-queue implementation would
// bring this to the standard O(n+m).
func lexBFS(ig *InterferenceGraph) []*colorNode {
	n := len(ig.nodes)
	order := make([]*colorNode, 0, n)
	label := make([][]int, n)
	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	for step := 0; len(remaining) > 0; step++ {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if lexGreater(label[remaining[i]], label[remaining[best]]) {
				best = i
			}
		}
		picked := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		order = append(order, ig.nodes[picked])

		for _, j := range remaining {
			if ig.interferes[picked][j] {
				label[j] = append(label[j], step)
			}
		}
	}
	return order
}

// lexGreater compares two labels as sequences built by appending the current step number each
// time a node gains a newly-visited neighbor: the most recently appended entries dominate the
// comparison, so it walks from the end of each slice.
func lexGreater(a, b []int) bool {
	i, j := len(a)-1, len(b)-1
	for {
		switch {
		case i < 0 && j < 0:
			return false
		case i < 0:
			return false
		case j < 0:
			return true
		case a[i] != b[j]:
			return a[i] > b[j]
		}
		i--
		j--
	}
}
