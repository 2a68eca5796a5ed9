package pea

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"

// ComposeDecomposedDeopts folds each DecomposedDeopt in result back into a single
// DeoptimizeIf when nothing ever materialized on its deopt-only arm, undoing decomposeDeopts'
// split (spec 4.2's compose half: "if no materialization landed on the new deopt block, the
// original folded form is restored"). Call once scalar replacement has finished inserting
// every materialization result.MaterializationSite calls for, so the membership check below
// reflects the final set of sites that actually needed the split.
func ComposeDecomposedDeopts(g *compilerapi.Graph, result *Result) {
	for _, dd := range result.DecomposedDeopts {
		if materializedInto(result, dd.DeoptBlock) {
			continue
		}
		foldDecomposedDeopt(g, dd)
	}
}

func materializedInto(result *Result, blk compilerapi.BlockID) bool {
	for _, site := range result.MaterializationSite {
		if site.Block == blk {
			return true
		}
	}
	return false
}

// foldDecomposedDeopt removes dd's CondBranch pair, rebuilds the original DeoptimizeIf in
// CondBlock, merges ContinueBlock's instructions back into it, and leaves DeoptBlock and
// ContinueBlock unreachable.
func foldDecomposedDeopt(g *compilerapi.Graph, dd DecomposedDeopt) {
	blk := g.Block(dd.CondBlock)

	falseBranch := blk.Tail()
	trueBranch := g.Inst(falseBranch).Prev()
	g.RemoveInst(falseBranch, false)
	g.RemoveInst(trueBranch, false)

	g.BuildDeoptimizeIf(dd.CondBlock, dd.Cond, dd.SaveState)
	g.MergeBlockInto(dd.CondBlock, dd.ContinueBlock)
	g.MarkUnreachableBlocksInvalid()
}
