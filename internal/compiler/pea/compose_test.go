package pea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
)

// TestComposeDecomposedDeopts_FoldsWhenNothingMaterialized checks the compose half of spec
// 4.2's decompose/compose pass: a deopt whose save state carries nothing virtual never
// materializes anything into the dedicated deopt block, so the split is folded back into a
// single DeoptimizeIf.
func TestComposeDecomposedDeopts_FoldsWhenNothingMaterialized(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 0)
	ss := g.BuildSaveStateDeoptimize(entry.ID(), nil, compilerapi.InstIDInvalid)
	g.BuildDeoptimizeIf(entry.ID(), cond, ss)
	val := g.BuildIconst(entry.ID(), compilerapi.TypeI32, 1)
	g.BuildReturn(entry.ID(), val)
	g.SetEndBlock(entry.ID())

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)
	require.Len(t, result.DecomposedDeopts, 1)
	dd := result.DecomposedDeopts[0]

	ComposeDecomposedDeopts(g, result)

	assert.False(t, g.Block(dd.DeoptBlock).Valid(), "deopt-only block should be folded away")
	assert.False(t, g.Block(dd.ContinueBlock).Valid(), "continue block should be merged back")

	condBlk := g.Block(dd.CondBlock)
	var foundDeoptIf, foundReturn bool
	for cur := condBlk.Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
		switch g.Inst(cur).Opcode() {
		case compilerapi.OpcodeDeoptimizeIf:
			foundDeoptIf = true
		case compilerapi.OpcodeReturn:
			foundReturn = true
		}
	}
	assert.True(t, foundDeoptIf, "folded block should carry a rebuilt DeoptimizeIf")
	assert.True(t, foundReturn, "continue block's instructions should have merged in")
}

// TestComposeDecomposedDeopts_KeepsSplitWhenMaterialized checks the inverse: once the escaping
// object reachable from the deopt's save state has to materialize inside the dedicated deopt
// block, composing must leave the split alone.
func TestComposeDecomposedDeopts_KeepsSplitWhenMaterialized(t *testing.T) {
	g, rt := newTestGraph()
	entry := g.NewBlock()
	g.SetStartBlock(entry.ID())

	cond := g.BuildIconst(entry.ID(), compilerapi.TypeBool, 0)
	alloc := g.BuildNewObject(entry.ID(), testClass)
	ss := g.BuildSaveStateDeoptimize(entry.ID(), []compilerapi.SaveStateEntry{{Value: alloc, VReg: 0}}, compilerapi.InstIDInvalid)
	g.BuildDeoptimizeIf(entry.ID(), cond, ss)
	g.BuildReturnVoid(entry.ID())
	g.SetEndBlock(entry.ID())

	result, err := NewAnalyzer(g, rt).Run()
	require.NoError(t, err)
	require.Len(t, result.DecomposedDeopts, 1)
	dd := result.DecomposedDeopts[0]

	foundInDeoptBlock := false
	for _, site := range result.MaterializationSite {
		if site.Block == dd.DeoptBlock {
			foundInDeoptBlock = true
		}
	}
	require.True(t, foundInDeoptBlock, "test setup should force a materialization into the deopt block")

	ComposeDecomposedDeopts(g, result)

	assert.True(t, g.Block(dd.DeoptBlock).Valid(), "deopt block must survive once something materialized into it")
	assert.True(t, g.Block(dd.ContinueBlock).Valid())
}
