// Package regalloc implements the graph-coloring register allocator: interference graph
// construction from live intervals, affinity biasing, reverse-Lex-BFS coloring over the
// resulting chordal graph, a bounded spill-split loop, and a second coloring pass for stack
// slots (spec section 4.5).
package regalloc

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// RegClass separates the two disjoint register banks the allocator colors independently.
// Interference and affinity edges are only ever added between same-class nodes, so the two
// banks never compete for the same color even though they share one InterferenceGraph.
type RegClass int

const (
	RegClassInt RegClass = iota
	RegClassFloat
	numRegClasses
)

func classOf(t compilerapi.DataType) RegClass {
	if t.IsFloat() {
		return RegClassFloat
	}
	return RegClassInt
}

// Config describes the target's register banks. Neither compilerapi.Runtime (class/field/
// method metadata) nor compilerapi.ArchDescriptor (memory-pair support only) carries register
// counts, so the allocator takes its own configuration: how many machine registers of each
// class exist, which trailing range of each bank is callee-saved, which individual registers
// are permanently reserved (frame pointer, link register, etc.), and the two allocation modes
// from spec 4.5.
type Config struct {
	NumRegisters     [numRegClasses]int
	CalleeSavedStart [numRegClasses]int
	Reserved         [numRegClasses]map[uint32]bool
	MaxStackSlots    int

	// BytecodeOptimizer selects the bytecode-optimizer mode: a single virtual bank of <=255
	// numbered registers and no splitting. JIT mode (the zero value) allows stack-slot
	// overflow via the spill loop.
	BytecodeOptimizer bool
}

func (c Config) reserved(class RegClass) map[uint32]bool {
	if c.Reserved[class] == nil {
		return nil
	}
	return c.Reserved[class]
}

const noColor = -1

// colorNode is one node of the interference graph: either a real SSA value's interval or a
// synthetic node representing a fixed physical register (spec 4.5 "Precoloring").
type colorNode struct {
	idx   int
	class RegClass

	// interval is nil for a synthetic physical-register node created only to anchor fixed-use
	// affinity edges and precoloring; see physicalNode.
	interval *liveness.LifeInterval

	fixed bool
	color int

	bias    int // index into InterferenceGraph.biases, or -1 before computeBiases runs
	csCount int // callsite intersections, spec 4.5's "record one callsite intersection..."

	spillWeight float64
}

// affinityBias is one connected component of the affinity graph (spec 4.5 "Bias records"):
// the set of nodes that should, if at all possible, share one color.
type affinityBias struct {
	nodes   []*colorNode
	color   int
	csCount int
}

// InterferenceGraph holds the dense node vector plus lower-triangular interference/affinity
// adjacency (spec 4.5's "InterferenceGraph" type).
type InterferenceGraph struct {
	nodes      []*colorNode
	interferes [][]bool
	affinity   [][]bool
	biases     []*affinityBias
}

func newInterferenceGraph() *InterferenceGraph { return &InterferenceGraph{} }

func (ig *InterferenceGraph) addNode(n *colorNode) {
	n.idx = len(ig.nodes)
	for i := range ig.interferes {
		ig.interferes[i] = append(ig.interferes[i], false)
		ig.affinity[i] = append(ig.affinity[i], false)
	}
	ig.nodes = append(ig.nodes, n)
	ig.interferes = append(ig.interferes, make([]bool, len(ig.nodes)))
	ig.affinity = append(ig.affinity, make([]bool, len(ig.nodes)))
}

func (ig *InterferenceGraph) addInterference(a, b *colorNode) {
	if a == b {
		return
	}
	ig.interferes[a.idx][b.idx] = true
	ig.interferes[b.idx][a.idx] = true
}

func (ig *InterferenceGraph) addAffinity(a, b *colorNode) {
	if a == b {
		return
	}
	ig.affinity[a.idx][b.idx] = true
	ig.affinity[b.idx][a.idx] = true
}

func (ig *InterferenceGraph) interferesWith(a, b *colorNode) bool {
	return ig.interferes[a.idx][b.idx]
}
