package regalloc

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// physicalNode returns (creating if needed) the node representing a fixed machine register of
// the given class, so every fixed use of the same register shares one node to be linked by
// affinity, rather than each use getting its own disconnected singleton.
func physicalNode(ig *InterferenceGraph, byPhys map[RegClass]map[uint32]*colorNode, class RegClass, reg uint32) *colorNode {
	m, ok := byPhys[class]
	if !ok {
		m = map[uint32]*colorNode{}
		byPhys[class] = m
	}
	if n, ok := m[reg]; ok {
		return n
	}
	n := &colorNode{class: class, fixed: true, color: int(reg), bias: -1}
	ig.addNode(n)
	m[reg] = n
	return n
}

// buildAffinity adds every affinity edge spec 4.5 names: sibling chains from interval splits,
// phi/phi-input pairs, and fixed-use/physical-register pairs.
func buildAffinity(g *compilerapi.Graph, ig *InterferenceGraph, byInterval map[*liveness.LifeInterval]*colorNode, byPhys map[RegClass]map[uint32]*colorNode) {
	// Sibling chains (spec: "Sibling chains (from live-interval splits) form affinity
	// edges").
	for li, n := range byInterval {
		if li.Sibling == nil {
			continue
		}
		if sn, ok := byInterval[li.Sibling]; ok {
			ig.addAffinity(n, sn)
		}
	}

	// Phi instructions add affinity edges between the phi node and each phi-input node.
	byValue := map[compilerapi.InstID]*colorNode{}
	for li, n := range byInterval {
		if !li.Value.IsPhysical && li.Value.Inst != compilerapi.InstIDInvalid {
			if cur, ok := byValue[li.Value.Inst]; !ok || li.Begin() < cur.interval.Begin() {
				byValue[li.Value.Inst] = n
			}
		}
	}
	for _, blk := range g.RPOBlocks() {
		for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
			inst := g.Inst(cur)
			if inst.Opcode() != compilerapi.OpcodePhi {
				continue
			}
			phiNode, ok := byValue[cur]
			if !ok {
				continue
			}
			for _, in := range inst.PhiInputs() {
				if in == compilerapi.InstIDInvalid {
					continue
				}
				if inNode, ok := byValue[in]; ok {
					ig.addAffinity(phiNode, inNode)
				}
			}
		}
	}

	// Fixed inputs add affinity edges between the consumer's fixed physical node and the
	// input's sibling covering that use (approximated here by the interval the use position
	// currently falls on, since splitting has not yet run on the first build).
	for li, n := range byInterval {
		for _, u := range li.Uses {
			if !u.Fixed || u.Loc.Kind != compilerapi.LocationRegister {
				continue
			}
			phys := physicalNode(ig, byPhys, n.class, u.Loc.Reg)
			ig.addAffinity(n, phys)
		}
	}
}

// computeBiases groups nodes connected by affinity edges into biases (spec 4.5 "Affinity
// components (biases) are computed via DFS"): a node joins a neighbor's bias along an affinity
// edge only if doing so would not place two interfering nodes in the same component.
func computeBiases(ig *InterferenceGraph) {
	ig.biases = nil
	for _, n := range ig.nodes {
		if n.bias >= 0 {
			continue
		}
		idx := len(ig.biases)
		b := &affinityBias{color: noColor}
		ig.biases = append(ig.biases, b)
		n.bias = idx
		b.nodes = append(b.nodes, n)
		if n.fixed {
			b.color = n.color
		}
		if n.csCount > 0 {
			b.csCount++
		}

		stack := []*colorNode{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, m := range ig.nodes {
				if m == cur || m.bias >= 0 || !ig.affinity[cur.idx][m.idx] {
					continue
				}
				conflict := false
				for _, member := range b.nodes {
					if ig.interferesWith(member, m) {
						conflict = true
						break
					}
				}
				if conflict {
					continue
				}
				m.bias = idx
				b.nodes = append(b.nodes, m)
				if m.fixed && b.color == noColor {
					b.color = m.color
				}
				if m.csCount > 0 {
					b.csCount++
				}
				stack = append(stack, m)
			}
		}
	}
}
