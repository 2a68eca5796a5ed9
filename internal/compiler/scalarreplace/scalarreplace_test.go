package scalarreplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/pea"
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

// countInsts walks blk's instruction list and counts how many carry opcode op.
func countInsts(g *compilerapi.Graph, blk compilerapi.BlockID, op compilerapi.Opcode) int {
	n := 0
	for cur := g.Block(blk).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		if g.Inst(cur).Opcode() == op {
			n++
		}
	}
	return n
}

// TestApply_UnusedAllocationElided mirrors spec scenario S1: an allocation whose fields are
// only ever read back symbolically, never escaping, must vanish from the final graph entirely.
func TestApply_UnusedAllocationElided(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	alloc := g.BuildNewObject(entry.ID(), testClass)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 42)
	field := compilerapi.FieldRef{Class: testClass, Field: 0}
	g.BuildStoreObject(entry.ID(), alloc, field, val)
	load := g.BuildLoadObject(entry.ID(), compilerapi.TypeI32, alloc, field)
	g.BuildReturn(entry.ID(), load)
	g.SetEndBlock(entry.ID())

	result, err := pea.NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	srResult, err := Apply(g, result)
	require.NoError(t, err)
	assert.Equal(t, 0, srResult.Materialized)
	assert.Equal(t, 1, srResult.Eliminated)

	assert.Equal(t, 0, countInsts(g, entry.ID(), compilerapi.OpcodeNewObject))
	assert.Equal(t, 0, countInsts(g, entry.ID(), compilerapi.OpcodeStoreObject))
	assert.Equal(t, 0, countInsts(g, entry.ID(), compilerapi.OpcodeLoadObject))

	ret := g.Inst(lastOfOpcode(t, g, entry.ID(), compilerapi.OpcodeReturn))
	require.Equal(t, 1, ret.NumInputs())
	assert.Equal(t, val, ret.Input(0).Value())
}

// TestApply_MaterializesOnCall mirrors S3/S6: an allocation that escapes through a call must
// get a real clone with its fields re-stored, and any SaveState must still be able to recover
// it afterward via a bridge input.
func TestApply_MaterializesOnCall(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	alloc := g.BuildNewObject(entry.ID(), testClass)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 7)
	field := compilerapi.FieldRef{Class: testClass, Field: 0}
	g.BuildStoreObject(entry.ID(), alloc, field, val)

	ss := g.BuildSafePoint(entry.ID(), []compilerapi.SaveStateEntry{{Value: alloc}}, compilerapi.InstIDInvalid)
	call := g.BuildCall(entry.ID(), compilerapi.TypeVoid, compilerapi.MethodID(7), alloc)
	g.BuildReturnVoid(entry.ID())
	g.SetEndBlock(entry.ID())
	_ = call

	result, err := pea.NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	srResult, err := Apply(g, result)
	require.NoError(t, err)
	assert.Equal(t, 1, srResult.Materialized)
	assert.Equal(t, 1, countInsts(g, entry.ID(), compilerapi.OpcodeNewObject))
	assert.Equal(t, 1, countInsts(g, entry.ID(), compilerapi.OpcodeStoreObject))

	callInst := g.Inst(call)
	require.Equal(t, 1, callInst.NumInputs())
	clone := callInst.Input(0).Value()
	assert.NotEqual(t, alloc, clone, "the call must follow the materialized clone, not the eliminated original")

	ssInst := g.Inst(ss)
	found := false
	for n := 0; n < ssInst.NumInputs(); n++ {
		if ssInst.Input(n).Value() == clone {
			found = true
		}
	}
	assert.True(t, found, "the safepoint must recover the materialized clone via a bridge input")
}

// TestApply_ResolvesMergedPhiFields mirrors S2/S5: two branches allocate the same class with
// identical constructor inputs but store different values into the same field; the merge
// should produce a real phi over the field value, and a load after the join should read it.
func TestApply_ResolvesMergedPhiFields(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	left := g.NewBlock()
	right := g.NewBlock()
	join := g.NewBlock()
	g.SetStartBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 1)
	g.BuildCondBranch(entry.ID(), cond, left.ID(), right.ID())

	field := compilerapi.FieldRef{Class: testClass, Field: 0}

	allocLeft := g.BuildNewObject(left.ID(), testClass)
	leftVal := g.BuildIconst(left.ID(), compilerapi.TypeI32, 1)
	g.BuildStoreObject(left.ID(), allocLeft, field, leftVal)
	g.BuildJump(left.ID(), join.ID())

	allocRight := g.BuildNewObject(right.ID(), testClass)
	rightVal := g.BuildIconst(right.ID(), compilerapi.TypeI32, 2)
	g.BuildStoreObject(right.ID(), allocRight, field, rightVal)
	g.BuildJump(right.ID(), join.ID())

	phi := g.BuildPhi(join.ID(), compilerapi.TypeReference)
	g.SetPhiInput(phi, 0, allocLeft)
	g.SetPhiInput(phi, 1, allocRight)
	load := g.BuildLoadObject(join.ID(), compilerapi.TypeI32, phi, field)
	g.BuildReturn(join.ID(), load)
	g.SetEndBlock(join.ID())

	result, err := pea.NewAnalyzer(g, rt).Run()
	require.NoError(t, err)

	srResult, err := Apply(g, result)
	require.NoError(t, err)
	assert.Equal(t, 0, srResult.Materialized, "neither branch allocation escapes, so nothing should materialize")

	ret := g.Inst(lastOfOpcode(t, g, join.ID(), compilerapi.OpcodeReturn))
	require.Equal(t, 1, ret.NumInputs())
	resolved := g.Inst(ret.Input(0).Value())
	require.Equal(t, compilerapi.OpcodePhi, resolved.Opcode(), "the load should resolve to a real phi over the two branch values")
	inputs := resolved.PhiInputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, leftVal, inputs[0])
	assert.Equal(t, rightVal, inputs[1])
}

func lastOfOpcode(t *testing.T, g *compilerapi.Graph, blk compilerapi.BlockID, op compilerapi.Opcode) compilerapi.InstID {
	t.Helper()
	var last compilerapi.InstID = compilerapi.InstIDInvalid
	for cur := g.Block(blk).Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		if g.Inst(cur).Opcode() == op {
			last = cur
		}
	}
	require.NotEqual(t, compilerapi.InstIDInvalid, last, "expected an instruction with the given opcode")
	return last
}
