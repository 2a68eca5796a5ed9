package pea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/rtcap"
)

const testClass compilerapi.ClassID = 1

func newTestGraph() (*compilerapi.Graph, *rtcap.Fake) {
	rt := rtcap.NewFake()
	rt.Instantiable[testClass] = true
	rt.ScalarReplaceable[testClass] = true
	g := compilerapi.NewGraph(compilerapi.ArchDescriptor{Name: "test"}, compilerapi.ModeJIT, compilerapi.Options{ScalarReplacement: true}, rt)
	return g, rt
}

// TestAnalyzer_StoreLoadRoundTrip mirrors escape_analysis_test.cpp's simplest shape: allocate,
// store a field, load it back in the same block, and expect the load to resolve to the stored
// value without ever touching the heap.
func TestAnalyzer_StoreLoadRoundTrip(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	alloc := g.BuildNewObject(entry.ID(), testClass)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 42)
	field := compilerapi.FieldRef{Class: testClass, Field: 0}
	g.BuildStoreObject(entry.ID(), alloc, field, val)
	load := g.BuildLoadObject(entry.ID(), compilerapi.TypeI32, alloc, field)
	ret := g.BuildReturn(entry.ID(), load)
	g.SetEndBlock(entry.ID())
	_ = ret

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	owner, ok := result.Aliases[load]
	require.True(t, ok, "load should resolve to a tracked owner")
	assert.Equal(t, OwnerInst, owner.Kind)
	assert.Equal(t, val, owner.Inst)

	_, materialized := result.MaterializationSite[StateID(1)]
	assert.False(t, materialized, "allocation never escapes, so it should never materialize")
	require.Len(t, result.VirtualAllocs, 1)
	assert.Equal(t, alloc, result.VirtualAllocs[0])
}

// TestAnalyzer_MaterializesOnCall mirrors the teacher corpus's pattern of proving an
// optimization's negative case: an allocation passed to a call must escape.
func TestAnalyzer_MaterializesOnCall(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	alloc := g.BuildNewObject(entry.ID(), testClass)
	call := g.BuildCall(entry.ID(), compilerapi.TypeVoid, compilerapi.MethodID(7), alloc)
	g.BuildReturnVoid(entry.ID())
	g.SetEndBlock(entry.ID())
	_ = call

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	require.Len(t, result.VirtualAllocs, 1)
	_, materialized := result.MaterializationSite[StateID(1)]
	assert.True(t, materialized, "passing the allocation to a call must force materialization")
}

// TestAnalyzer_NonInstantiableClassNeverTracked checks the Runtime-gated opt-out: a class the
// embedder reports as non-instantiable (e.g. an array covariance hazard) must never be
// virtualized at all, regardless of how it's used.
func TestAnalyzer_NonInstantiableClassNeverTracked(t *testing.T) {
	g, rt := newTestGraph()
	var other compilerapi.ClassID = 2
	rt.Instantiable[other] = false
	rt.ScalarReplaceable[other] = true

	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())
	alloc := g.BuildNewObject(entry.ID(), other)
	g.BuildReturn(entry.ID(), alloc)
	g.SetEndBlock(entry.ID())

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)
	assert.Empty(t, result.VirtualAllocs)
}

// TestAnalyzer_MergeAcrossBranchesWithIdenticalCtor mirrors a phi-of-allocations shape: two
// branches each allocate the same class with identical constructor inputs before merging
// through a phi; the merged state should itself stay virtual rather than forcing
// materialization at the join.
func TestAnalyzer_MergeAcrossBranchesWithIdenticalCtor(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	left := g.NewBlock()
	right := g.NewBlock()
	join := g.NewBlock()
	g.SetStartBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 1)
	g.BuildCondBranch(entry.ID(), cond, left.ID(), right.ID())

	allocLeft := g.BuildNewObject(left.ID(), testClass)
	g.BuildJump(left.ID(), join.ID())

	allocRight := g.BuildNewObject(right.ID(), testClass)
	g.BuildJump(right.ID(), join.ID())

	phi := g.BuildPhi(join.ID(), compilerapi.TypeReference)
	g.SetPhiInput(phi, 0, allocLeft)
	g.SetPhiInput(phi, 1, allocRight)
	g.BuildReturn(join.ID(), phi)
	g.SetEndBlock(join.ID())

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	require.Len(t, result.VirtualAllocs, 2)
	for _, alloc := range result.VirtualAllocs {
		_, materialized := result.MaterializationSite[stateIDOf(t, result, alloc)]
		assert.False(t, materialized, "both branch allocations share class and ctor inputs, so the join should stay virtual")
	}
}

func stateIDOf(t *testing.T, result *Result, alloc compilerapi.InstID) StateID {
	t.Helper()
	for id, vs := range result.States {
		if vs.Alloc == alloc {
			return id
		}
	}
	t.Fatalf("no VirtualState found for alloc %v", alloc)
	return MaterializedID
}

// TestAnalyzer_DecomposesDeoptimizeIf checks the decompose pre-pass splits a conditional deopt
// into a real branch feeding a dedicated Deoptimize block.
func TestAnalyzer_DecomposesDeoptimizeIf(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 0)
	ss := g.BuildSaveStateDeoptimize(entry.ID(), nil, compilerapi.InstIDInvalid)
	g.BuildDeoptimizeIf(entry.ID(), cond, ss)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1)
	ret := g.BuildReturn(entry.ID(), val)
	g.SetEndBlock(entry.ID())
	_ = ret

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)
	require.Len(t, result.DecomposedDeopts, 1)

	split := result.DecomposedDeopts[0]
	assert.Equal(t, cond, split.Cond)
	assert.Equal(t, ss, split.SaveState)
	assert.NotEqual(t, split.DeoptBlock, split.ContinueBlock)
}
