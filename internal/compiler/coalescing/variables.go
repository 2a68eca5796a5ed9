// Package coalescing implements memory coalescing: folding two adjacent array accesses into
// a single pair memory operation when the target supports one (spec section 4.4).
package coalescing

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"

// variable is the {base, diff} pair variable analysis derives for an integer value: the value
// equals base's value plus the constant diff. A value with no derivable base is its own base
// with diff 0 (spec 4.4 "Variable analysis").
type variable struct {
	base compilerapi.InstID
	diff int64
}

// variableAnalyzer walks a graph in RPO deriving, for every AddI/SubI result, the constant
// offset it carries from whatever root value it was built from, and recording the
// {initial, step} evolution of reducible loop-header phis (spec 4.4, mirroring
// original_source's VariableAnalysis class).
type variableAnalyzer struct {
	g    *compilerapi.Graph
	vars map[compilerapi.InstID]variable
	// step records the per-iteration delta of a reducible loop-header phi, keyed by the phi's
	// own InstID; only phis recognized as induction variables appear here.
	step map[compilerapi.InstID]int64
}

func newVariableAnalyzer(g *compilerapi.Graph) *variableAnalyzer {
	return &variableAnalyzer{g: g, vars: map[compilerapi.InstID]variable{}, step: map[compilerapi.InstID]int64{}}
}

// analyze populates the analyzer; call before pairing candidates.
func (a *variableAnalyzer) analyze() {
	for _, blk := range a.g.RPOBlocks() {
		for cur := blk.Root(); cur != compilerapi.InstIDInvalid; cur = a.g.Inst(cur).Next() {
			inst := a.g.Inst(cur)
			switch inst.Opcode() {
			case compilerapi.OpcodeAddI, compilerapi.OpcodeSubI:
				a.deriveArith(inst)
			case compilerapi.OpcodePhi:
				a.deriveLoopPhi(blk, inst)
			}
		}
	}
}

// deriveArith records inst's {base, diff} when inst is `x +/- const` or `const +/- x` (only the
// AddI case is commutative; SubI's constant must be the right operand to keep the signed
// arithmetic correct).
func (a *variableAnalyzer) deriveArith(inst *compilerapi.Inst) {
	x, y := inst.Input(0).Value(), inst.Input(1).Value()
	if c, ok := a.constOf(y); ok {
		base := a.baseOf(x)
		delta := c
		if inst.Opcode() == compilerapi.OpcodeSubI {
			delta = -c
		}
		a.vars[inst.ID()] = variable{base: base.base, diff: base.diff + delta}
		return
	}
	if inst.Opcode() == compilerapi.OpcodeAddI {
		if c, ok := a.constOf(x); ok {
			base := a.baseOf(y)
			a.vars[inst.ID()] = variable{base: base.base, diff: base.diff + c}
		}
	}
}

// deriveLoopPhi recognizes a two-input reducible loop-header phi whose pre-header input is a
// constant and whose back-edge input resolves (via the arithmetic already derived above) to
// itself plus a constant step, recording that step (spec 4.4 "base = {initial, step}").
func (a *variableAnalyzer) deriveLoopPhi(blk *compilerapi.BasicBlock, phi *compilerapi.Inst) {
	if blk.Loop() == nil || blk.Loop().Header != blk.ID() || blk.Preds() != 2 {
		return
	}
	inputs := phi.PhiInputs()
	if len(inputs) != 2 {
		return
	}
	for i := 0; i < 2; i++ {
		other := 1 - i
		preheader, backedge := inputs[i], inputs[other]
		predBlk := blk.PredBlock(other)
		if !a.g.IsDominatedBy(predBlk, blk.ID()) {
			continue // this is the preheader edge, not the back edge
		}
		if _, isConst := a.constOf(preheader); !isConst {
			continue
		}
		v := a.baseOf(backedge)
		if v.base == phi.ID() {
			a.step[phi.ID()] = v.diff
			return
		}
	}
}

// baseOf returns the {base, diff} recorded for v, or {v, 0} if v has no recorded derivation
// (a fresh root: a phi, a load, a call result, or an unrecognized arithmetic shape).
func (a *variableAnalyzer) baseOf(v compilerapi.InstID) variable {
	if vr, ok := a.vars[v]; ok {
		return vr
	}
	return variable{base: v, diff: 0}
}

// constOf returns the signed integer value of v if v is an Iconst, else ok=false.
func (a *variableAnalyzer) constOf(v compilerapi.InstID) (int64, bool) {
	if v == compilerapi.InstIDInvalid {
		return 0, false
	}
	inst := a.g.Inst(v)
	if inst.Opcode() != compilerapi.OpcodeIconst {
		return 0, false
	}
	return signExtend(inst.ConstBits(), inst.Type().Bits()), true
}

func signExtend(bits uint64, width int) int64 {
	if width >= 64 {
		return int64(bits)
	}
	shift := 64 - uint(width)
	return int64(bits<<shift) >> shift
}
