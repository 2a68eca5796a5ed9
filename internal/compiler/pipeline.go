// Package compiler orchestrates the CORE optimization passes over one Graph: partial escape
// analysis and scalar replacement, memory coalescing, and register allocation (spec section 6
// "Pass entry point", section 2's package map).
package compiler

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/coalescing"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/pea"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/regalloc"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/scalarreplace"
)

// Result reports what each stage of the pipeline did, for the embedder to log or assert on in
// tests. A stage that did not run (disabled by an option, or skipped because an earlier stage
// produced nothing for it to consume) leaves its field at its zero value.
type Result struct {
	PEA           *pea.Result
	ScalarReplace *scalarreplace.Result
	Coalescing    *coalescing.Result
	RegAlloc      *regalloc.Result

	// Skipped records, per stage name, the PassCannotComplete reason a stage gave up for
	// (spec section 7: "the pass returns false and the pipeline continues"). The register
	// allocator is the only stage this project treats as mandatory: see the comment above
	// Run's regalloc.Allocate call.
	Skipped map[string]string
}

// Run executes the ordered pass sequence spec section 6 names as the pipeline's external
// interface, honoring opts' flags (spec section 6 "Option flags"). The order matters: scalar
// replacement only has something to do once PEA has found virtualizable allocations, and
// memory coalescing runs before register allocation so the allocator sees the reduced
// instruction count (fewer live values to color). Ported from `(*builder).RunPasses`'s shape:
// a single ordered function naming each stage, generalized from a fixed list of SSA cleanup
// passes to this CORE's option-gated optimization stages.
func Run(g *compilerapi.Graph, opts compilerapi.Options, regCfg regalloc.Config) (*Result, error) {
	res := &Result{Skipped: map[string]string{}}

	if opts.ScalarReplacement {
		peaResult, err := runPEA(g, res)
		if err != nil {
			return res, err
		}
		if peaResult != nil {
			if _, skipped := res.Skipped["pea"]; !skipped {
				if err := runScalarReplace(g, peaResult, res); err != nil {
					return res, err
				}
			}
			// decomposeDeopts (run unconditionally inside pea.Analyzer.Run) has already
			// split every conditional deopt in g by this point, whether or not PEA itself
			// converged; fold the ones nothing materialized into back to their original
			// form now that scalar replacement (if it ran) is done consulting the split.
			pea.ComposeDecomposedDeopts(g, peaResult)
		}
	}
	g.RunChecker("scalar-replacement")

	if err := runCoalescing(g, opts, res); err != nil {
		return res, err
	}
	g.RunChecker("memory-coalescing")

	// Register allocation is not optional: every Graph this pipeline is handed is headed to
	// codegen, and codegen has nothing to emit without resolved Locations. A PassCannotComplete
	// here is therefore propagated rather than recorded in Skipped (spec section 7: "the
	// embedder may skip this compile").
	allocResult, err := regalloc.Allocate(g, regCfg)
	if err != nil {
		return res, err
	}
	res.RegAlloc = allocResult
	g.RunChecker("regalloc")

	return res, nil
}

func runPEA(g *compilerapi.Graph, res *Result) (*pea.Result, error) {
	a := pea.NewAnalyzer(g, g.Runtime)
	r, err := a.Run()
	if err != nil {
		if pcc, ok := err.(*compilerapi.PassCannotComplete); ok {
			res.Skipped[pcc.Pass] = pcc.Reason
			// The analyzer still returns its (non-converged) Result on this path, and
			// decomposeDeopts already mutated g before the convergence check ran; the
			// caller needs that Result back so it can still fold deopts that scalar
			// replacement will now never run against.
			return r, nil
		}
		return nil, err
	}
	res.PEA = r
	return r, nil
}

func runScalarReplace(g *compilerapi.Graph, peaResult *pea.Result, res *Result) error {
	r, err := scalarreplace.Apply(g, peaResult)
	if err != nil {
		if pcc, ok := err.(*compilerapi.PassCannotComplete); ok {
			res.Skipped[pcc.Pass] = pcc.Reason
			return nil
		}
		return err
	}
	res.ScalarReplace = r
	return nil
}

func runCoalescing(g *compilerapi.Graph, opts compilerapi.Options, res *Result) error {
	r, err := coalescing.Apply(g, opts)
	if err != nil {
		if pcc, ok := err.(*compilerapi.PassCannotComplete); ok {
			res.Skipped[pcc.Pass] = pcc.Reason
			return nil
		}
		return err
	}
	res.Coalescing = r
	return nil
}
