package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/regalloc"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/rtcap"
)

const pipelineTestClass compilerapi.ClassID = 1

func testRegConfig() regalloc.Config {
	return regalloc.Config{
		NumRegisters:     [2]int{regalloc.RegClassInt: 8, regalloc.RegClassFloat: 8},
		CalleeSavedStart: [2]int{regalloc.RegClassInt: 4, regalloc.RegClassFloat: 4},
		MaxStackSlots:    16,
	}
}

// TestRun_CoalescingThenRegAlloc exercises the coalescing and register-allocation stages
// together: a constant array-index store pair is built by coalescing, then every surviving
// value that produces a result leaves with a resolved Location.
func TestRun_CoalescingThenRegAlloc(t *testing.T) {
	rt := rtcap.NewFake()
	opts := compilerapi.Options{MemoryCoalescing: true}
	g := compilerapi.NewGraph(
		compilerapi.ArchDescriptor{Name: "test", SupportsMemoryPairs: true},
		compilerapi.ModeJIT, opts, rt,
	)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	arr := g.BuildNewArray(entry.ID(), 1, compilerapi.TypeI32, g.BuildIconst(entry.ID(), compilerapi.TypeI32, 4))
	v0 := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 10)
	v1 := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 20)
	g.BuildStoreArrayI(entry.ID(), arr, 0, v0)
	g.BuildStoreArrayI(entry.ID(), arr, 1, v1)
	g.BuildReturn(entry.ID(), arr)

	res, err := Run(g, opts, testRegConfig())
	require.NoError(t, err)
	require.NotNil(t, res.Coalescing)
	assert.Equal(t, 1, res.Coalescing.PairsBuilt)
	require.NotNil(t, res.RegAlloc)
	assert.Empty(t, res.Skipped)

	for cur := g.Block(entry.ID()).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		inst := g.Inst(cur)
		if inst.Opcode().IsTerminator() {
			continue
		}
		if inst.Type() == compilerapi.TypeVoid || inst.Type() == compilerapi.TypeNoType {
			continue
		}
		assert.NotEqual(t, compilerapi.LocationNone, inst.Location().Kind, "inst %v has no resolved location", cur)
	}
}

// TestRun_ScalarReplacementDisabledSkipsPEA confirms the ScalarReplacement option actually gates
// the PEA/scalar-replace stages: with it off, an allocation that would otherwise be eliminated
// is left completely alone, and Result.PEA/ScalarReplace stay nil.
func TestRun_ScalarReplacementDisabledSkipsPEA(t *testing.T) {
	rt := rtcap.NewFake()
	rt.Instantiable[pipelineTestClass] = true
	rt.ScalarReplaceable[pipelineTestClass] = true
	opts := compilerapi.Options{}
	g := compilerapi.NewGraph(compilerapi.ArchDescriptor{Name: "test"}, compilerapi.ModeJIT, opts, rt)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	alloc := g.BuildNewObject(entry.ID(), pipelineTestClass)
	field := compilerapi.FieldRef{Class: pipelineTestClass, Field: 0}
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1)
	g.BuildStoreObject(entry.ID(), alloc, field, val)
	g.BuildReturnVoid(entry.ID())

	res, err := Run(g, opts, testRegConfig())
	require.NoError(t, err)
	assert.Nil(t, res.PEA)
	assert.Nil(t, res.ScalarReplace)

	n := 0
	for cur := g.Block(entry.ID()).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		if g.Inst(cur).Opcode() == compilerapi.OpcodeNewObject {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

// TestRun_ComposesUnmaterializedDecomposedDeopt exercises the decompose/compose deoptimization
// sub-pass end to end through Run: a DeoptimizeIf whose save state never forces a
// materialization should come back out of the pipeline as a single DeoptimizeIf again, not the
// branch-plus-Deoptimize split PEA introduces internally.
func TestRun_ComposesUnmaterializedDecomposedDeopt(t *testing.T) {
	rt := rtcap.NewFake()
	opts := compilerapi.Options{ScalarReplacement: true}
	g := compilerapi.NewGraph(compilerapi.ArchDescriptor{Name: "test"}, compilerapi.ModeJIT, opts, rt)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 0)
	ss := g.BuildSaveStateDeoptimize(entry.ID(), nil, compilerapi.InstIDInvalid)
	g.BuildDeoptimizeIf(entry.ID(), cond, ss)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1)
	g.BuildReturn(entry.ID(), val)

	res, err := Run(g, opts, testRegConfig())
	require.NoError(t, err)
	require.NotNil(t, res.PEA)
	require.Len(t, res.PEA.DecomposedDeopts, 1)

	dd := res.PEA.DecomposedDeopts[0]
	assert.False(t, g.Block(dd.DeoptBlock).Valid())
	assert.False(t, g.Block(dd.ContinueBlock).Valid())

	foundDeoptIf := false
	for cur := g.Block(dd.CondBlock).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		if g.Inst(cur).Opcode() == compilerapi.OpcodeDeoptimizeIf {
			foundDeoptIf = true
		}
	}
	assert.True(t, foundDeoptIf)
}

// TestRun_RegAllocFailurePropagates checks that a bytecode-optimizer Config too small to color
// the graph surfaces its PassCannotComplete to the caller instead of being absorbed into
// Result.Skipped (spec section 7: register allocation failure is not optional to report).
func TestRun_RegAllocFailurePropagates(t *testing.T) {
	rt := rtcap.NewFake()
	opts := compilerapi.Options{}
	g := compilerapi.NewGraph(compilerapi.ArchDescriptor{Name: "test"}, compilerapi.ModeBytecodeOptimizer, opts, rt)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	const n = 6
	vals := make([]compilerapi.InstID, n)
	for i := 0; i < n; i++ {
		vals[i] = g.BuildIconst(entry.ID(), compilerapi.TypeI32, uint64(i))
	}
	total := vals[0]
	for i := 1; i < n; i++ {
		total = g.BuildAddI(entry.ID(), compilerapi.TypeI32, total, vals[i])
	}
	g.BuildReturn(entry.ID(), total)

	cfg := regalloc.Config{
		NumRegisters:      [2]int{regalloc.RegClassInt: 1, regalloc.RegClassFloat: 1},
		CalleeSavedStart:  [2]int{regalloc.RegClassInt: 1, regalloc.RegClassFloat: 1},
		MaxStackSlots:     8,
		BytecodeOptimizer: true,
	}

	res, err := Run(g, opts, cfg)
	require.Error(t, err)
	var pcc *compilerapi.PassCannotComplete
	require.ErrorAs(t, err, &pcc)
	assert.Equal(t, "regalloc", pcc.Pass)
	assert.Nil(t, res.RegAlloc)
}
