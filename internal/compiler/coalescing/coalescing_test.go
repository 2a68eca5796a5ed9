package coalescing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/rtcap"
)

func newPairableGraph() (*compilerapi.Graph, compilerapi.Options) {
	opts := compilerapi.Options{MemoryCoalescing: true}
	g := compilerapi.NewGraph(
		compilerapi.ArchDescriptor{Name: "test", SupportsMemoryPairs: true},
		compilerapi.ModeJIT, opts, rtcap.NewFake(),
	)
	return g, opts
}

func countInsts(g *compilerapi.Graph, blk compilerapi.BlockID, op compilerapi.Opcode) int {
	n := 0
	for cur := g.Block(blk).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		if g.Inst(cur).Opcode() == op {
			n++
		}
	}
	return n
}

// TestApply_ConstIndexStorePair covers the simplest case in spec 4.4: two adjacent constant
// array-index stores into the same array, at aligned even/odd indices, fold into one
// StoreArrayPairI.
func TestApply_ConstIndexStorePair(t *testing.T) {
	g, opts := newPairableGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 4))
	v0 := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 10)
	v1 := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 20)
	g.BuildStoreArrayI(entry.ID(), arr, 0, v0)
	g.BuildStoreArrayI(entry.ID(), arr, 1, v1)
	g.BuildReturnVoid(entry.ID())
	g.SetEndBlock(entry.ID())

	result, err := Apply(g, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PairsBuilt)
	assert.Equal(t, 0, countInsts(g, entry.ID(), compilerapi.OpcodeStoreArrayI))
	assert.Equal(t, 1, countInsts(g, entry.ID(), compilerapi.OpcodeStoreArrayPairI))
}

// TestApply_ConstIndexLoadPairUnaligned asserts the alignment rule: indices 1,2 differ by one
// but the lower index is odd, so no pair may be formed.
func TestApply_ConstIndexLoadPairUnaligned(t *testing.T) {
	g, opts := newPairableGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 4))
	l0 := g.BuildLoadArrayI(entry.ID(), compilerapi.TypeI32, arr, 1)
	l1 := g.BuildLoadArrayI(entry.ID(), compilerapi.TypeI32, arr, 2)
	sum := g.BuildAddI(entry.ID(), compilerapi.TypeI32, l0, l1)
	g.BuildReturn(entry.ID(), sum)
	g.SetEndBlock(entry.ID())

	result, err := Apply(g, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PairsBuilt)
	assert.Equal(t, 2, countInsts(g, entry.ID(), compilerapi.OpcodeLoadArrayI))
}

// TestApply_DynamicIndexLoopInductionPair covers a loop body accessing arr[i] and arr[i+1] on a
// reducible induction variable, the dynamic-index case from spec 4.4. The loop is shaped
// entry -> header -> latch -> header (back edge) / header -> exit, with latch's sole
// instruction (the back-edge jump) built before header's body so header's phi can be
// constructed with its final, full predecessor count already known (BuildPhi sizes its input
// slots from the block's predecessor count at construction time).
func TestApply_DynamicIndexLoopInductionPair(t *testing.T) {
	g, opts := newPairableGraph()
	entry := g.NewBlock()
	header := g.NewBlock()
	latch := g.NewBlock()
	exit := g.NewBlock()
	g.SetStartBlock(entry.ID())

	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 100))
	zero := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 0)
	g.BuildJump(entry.ID(), header.ID())

	g.BuildJump(latch.ID(), header.ID())

	phi := g.BuildPhi(header.ID(), compilerapi.TypeI32)
	one := g.BuildIconst(header.ID(), compilerapi.TypeI32, 1)
	iPlus1 := g.BuildAddI(header.ID(), compilerapi.TypeI32, phi, one)
	l0 := g.BuildLoadArray(header.ID(), compilerapi.TypeI32, arr, phi)
	l1 := g.BuildLoadArray(header.ID(), compilerapi.TypeI32, arr, iPlus1)
	sum := g.BuildAddI(header.ID(), compilerapi.TypeI32, l0, l1)
	two := g.BuildIconst(header.ID(), compilerapi.TypeI32, 2)
	next := g.BuildAddI(header.ID(), compilerapi.TypeI32, phi, two)
	limit := g.BuildIconst(header.ID(), compilerapi.TypeI32, 100)
	cond := g.BuildIcmp(header.ID(), compilerapi.CondLT, next, limit)
	g.BuildCondBranch(header.ID(), cond, latch.ID(), exit.ID())
	_ = sum

	for i := 0; i < g.Block(header.ID()).Preds(); i++ {
		if g.Block(header.ID()).PredBlock(i) == latch.ID() {
			g.SetPhiInput(phi, i, next)
		} else {
			g.SetPhiInput(phi, i, zero)
		}
	}

	g.BuildReturnVoid(exit.ID())
	g.SetEndBlock(exit.ID())

	result, err := Apply(g, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PairsBuilt)
	assert.Equal(t, 0, countInsts(g, header.ID(), compilerapi.OpcodeLoadArray))
	assert.Equal(t, 1, countInsts(g, header.ID(), compilerapi.OpcodeLoadArrayPair))
	assert.Equal(t, 2, countInsts(g, header.ID(), compilerapi.OpcodeLoadPairPart))
}

// TestApply_BlockedByInterveningAliasingStore asserts that a store to the same array between
// two otherwise-pairable loads prevents coalescing (spec 4.4 "Movement ranges").
func TestApply_BlockedByInterveningAliasingStore(t *testing.T) {
	g, opts := newPairableGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 4))
	l0 := g.BuildLoadArrayI(entry.ID(), compilerapi.TypeI32, arr, 0)
	mid := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 99)
	g.BuildStoreArrayI(entry.ID(), arr, 0, mid)
	l1 := g.BuildLoadArrayI(entry.ID(), compilerapi.TypeI32, arr, 1)
	sum := g.BuildAddI(entry.ID(), compilerapi.TypeI32, l0, l1)
	g.BuildReturn(entry.ID(), sum)
	g.SetEndBlock(entry.ID())

	result, err := Apply(g, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PairsBuilt)
	assert.Equal(t, 2, countInsts(g, entry.ID(), compilerapi.OpcodeLoadArrayI))
}

// TestApply_NoopWithoutArchSupport asserts the pass's stated precondition: it does nothing when
// the target cannot execute pair memory ops.
func TestApply_NoopWithoutArchSupport(t *testing.T) {
	opts := compilerapi.Options{MemoryCoalescing: true}
	g := compilerapi.NewGraph(compilerapi.ArchDescriptor{Name: "test"}, compilerapi.ModeJIT, opts, rtcap.NewFake())
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 4))
	g.BuildStoreArrayI(entry.ID(), arr, 0, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1))
	g.BuildStoreArrayI(entry.ID(), arr, 1, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 2))
	g.BuildReturnVoid(entry.ID())
	g.SetEndBlock(entry.ID())

	result, err := Apply(g, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PairsBuilt)
}
