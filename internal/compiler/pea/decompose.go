package pea

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"

// DecomposedDeopt records one DeoptimizeIf that decomposeDeopts split into a real branch plus
// an unconditional Deoptimize, so a later pass can recompose it back to the folded form when
// nothing ever materialized on the deopt-only arm (spec 4.2's "decompose/compose" sub-pass).
type DecomposedDeopt struct {
	Cond          compilerapi.InstID
	SaveState     compilerapi.InstID
	CondBlock     compilerapi.BlockID
	DeoptBlock    compilerapi.BlockID
	ContinueBlock compilerapi.BlockID
}

// decomposeDeopts splits every OpcodeDeoptimizeIf in g into a CondBranch plus a dedicated
// unconditional-Deoptimize block, so scalar replacement's materialization sites never need to
// land mid-block on a conditional instruction. NullCheck is already a single flagged
// instruction rather than a branching op in this IR, so it needs no equivalent decomposition
// (see DESIGN.md).
func decomposeDeopts(g *compilerapi.Graph) []DecomposedDeopt {
	var targets []compilerapi.InstID
	for _, blk := range g.Blocks() {
		if !blk.Valid() {
			continue
		}
		for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = g.Inst(cur).Next() {
			if g.Inst(cur).Opcode() == compilerapi.OpcodeDeoptimizeIf {
				targets = append(targets, cur)
			}
		}
	}

	var splits []DecomposedDeopt
	for _, id := range targets {
		inst := g.Inst(id)
		blkID := inst.Block()
		cond := inst.Input(0).Value()
		ss := inst.Input(1).Value()

		contBlk := g.SplitBlockAfterInstruction(id)
		deoptBlk := g.NewBlock()
		g.BuildDeoptimize(deoptBlk.ID(), ss)

		g.RemoveInst(id, false)
		g.BuildCondBranch(blkID, cond, deoptBlk.ID(), contBlk)

		splits = append(splits, DecomposedDeopt{
			Cond:          cond,
			SaveState:     ss,
			CondBlock:     blkID,
			DeoptBlock:    deoptBlk.ID(),
			ContinueBlock: contBlk,
		})
	}
	return splits
}
