package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/rtcap"
)

func newGraph(mode compilerapi.Mode) *compilerapi.Graph {
	return compilerapi.NewGraph(
		compilerapi.ArchDescriptor{Name: "test"},
		mode, compilerapi.Options{}, rtcap.NewFake(),
	)
}

func jitConfig() Config {
	return Config{
		NumRegisters:     [numRegClasses]int{RegClassInt: 4, RegClassFloat: 4},
		CalleeSavedStart: [numRegClasses]int{RegClassInt: 2, RegClassFloat: 2},
		MaxStackSlots:    16,
	}
}

// TestAllocate_NoSpillColorsEveryValue covers the straight-line case: fewer live values than
// registers, so every value should come back with a register Location and the spill loop
// should finish in a single round.
func TestAllocate_NoSpillColorsEveryValue(t *testing.T) {
	g := newGraph(compilerapi.ModeJIT)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	a := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1)
	b := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 2)
	sum := g.BuildAddI(entry.ID(), compilerapi.TypeI32, a, b)
	g.BuildReturn(entry.ID(), sum)

	res, err := Allocate(g, jitConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 0, res.Spilled)

	for _, id := range []compilerapi.InstID{a, b, sum} {
		loc := g.Inst(id).Location()
		assert.Equal(t, compilerapi.LocationRegister, loc.Kind)
	}
}

// TestAllocate_ForcedSpillSplitsAndRetries uses a tiny two-register budget against many
// simultaneously live values, forcing the spill loop to split and retry at least once before
// it finds a coloring.
func TestAllocate_ForcedSpillSplitsAndRetries(t *testing.T) {
	g := newGraph(compilerapi.ModeJIT)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	const n = 8
	vals := make([]compilerapi.InstID, n)
	for i := 0; i < n; i++ {
		vals[i] = g.BuildIconst(entry.ID(), compilerapi.TypeI32, uint64(i))
	}
	var total compilerapi.InstID
	total = vals[0]
	for i := 1; i < n; i++ {
		total = g.BuildAddI(entry.ID(), compilerapi.TypeI32, total, vals[i])
	}
	g.BuildReturn(entry.ID(), total)

	cfg := Config{
		NumRegisters:     [numRegClasses]int{RegClassInt: 2, RegClassFloat: 2},
		CalleeSavedStart: [numRegClasses]int{RegClassInt: 1, RegClassFloat: 1},
		MaxStackSlots:    32,
	}

	res, err := Allocate(g, cfg)
	require.NoError(t, err)
	assert.Greater(t, res.Rounds, 1)

	for _, id := range vals {
		loc := g.Inst(id).Location()
		assert.NotEqual(t, compilerapi.LocationNone, loc.Kind)
	}
}

// TestAllocate_BytecodeOptimizerFailsWithoutSplitting asserts bytecode-optimizer mode never
// splits: with too few registers for the live set, Allocate must fail on the first round
// instead of retrying.
func TestAllocate_BytecodeOptimizerFailsWithoutSplitting(t *testing.T) {
	g := newGraph(compilerapi.ModeBytecodeOptimizer)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	const n = 6
	vals := make([]compilerapi.InstID, n)
	for i := 0; i < n; i++ {
		vals[i] = g.BuildIconst(entry.ID(), compilerapi.TypeI32, uint64(i))
	}
	var total compilerapi.InstID
	total = vals[0]
	for i := 1; i < n; i++ {
		total = g.BuildAddI(entry.ID(), compilerapi.TypeI32, total, vals[i])
	}
	g.BuildReturn(entry.ID(), total)

	cfg := Config{
		NumRegisters:      [numRegClasses]int{RegClassInt: 1, RegClassFloat: 1},
		CalleeSavedStart:  [numRegClasses]int{RegClassInt: 1, RegClassFloat: 1},
		MaxStackSlots:     8,
		BytecodeOptimizer: true,
	}

	_, err := Allocate(g, cfg)
	require.Error(t, err)
	var pcc *compilerapi.PassCannotComplete
	require.ErrorAs(t, err, &pcc)
	assert.Equal(t, "regalloc", pcc.Pass)
}

// TestAllocate_PrecoloredCallFavorsCalleeSaved checks that a value whose live range crosses a
// call instruction is colored from the callee-saved range when one is free, since it must
// survive the call uncorrupted (spec 4.5 "biasing toward callee-saved registers").
func TestAllocate_PrecoloredCallFavorsCalleeSaved(t *testing.T) {
	g := newGraph(compilerapi.ModeJIT)
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	g.SetEndBlock(entry.ID())

	live := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 7)
	g.BuildCall(entry.ID(), compilerapi.TypeI32, compilerapi.MethodID(1))
	sum := g.BuildAddI(entry.ID(), compilerapi.TypeI32, live, live)
	g.BuildReturn(entry.ID(), sum)

	cfg := jitConfig()
	res, err := Allocate(g, cfg)
	require.NoError(t, err)
	require.Equal(t, 0, res.Spilled)

	loc := g.Inst(live).Location()
	require.Equal(t, compilerapi.LocationRegister, loc.Kind)
	rm := NewRegisterMap(cfg)
	assert.True(t, rm.IsCalleeSaved(RegClassInt, int(loc.Reg)))
}
