package regalloc

import (
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"
	"github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/liveness"
)

// Result summarizes one allocation run (spec 4.5's top-level entry point).
type Result struct {
	Colored int
	Spilled int
	Rounds  int
}

// Allocate runs the full graph-coloring register allocator over g and writes every resolved
// location back onto its defining instruction via Inst.SetLocation (spec 4.5). It builds fresh
// liveness from g, so callers do not need to run the liveness package themselves first.
//
// A value that got split during the spill loop can end up with more than one sibling interval,
// each carrying its own Location, while compilerapi.Inst has room for exactly one; this CORE
// has no downstream codegen stage to consume per-use split precision, so the location written back for each InstID is the one assigned to
// whichever sibling interval has the earliest Begin() position, i.e. the interval nearest the
// value's definition.
func Allocate(g *compilerapi.Graph, cfg Config) (*Result, error) {
	la := liveness.NewLivenessAnalyzer(g).Analyze()

	byID := la.AllIntervals()
	intervals := make([]*liveness.LifeInterval, 0, len(byID))
	for _, li := range byID {
		intervals = append(intervals, li)
	}

	_, byInterval, forcedStack, rounds, err := runSpillLoop(g, la, intervals, cfg)
	if err != nil {
		return nil, err
	}

	stackColors := assignStackSlots(forcedStack, cfg)
	rm := NewRegisterMap(cfg)

	type best struct {
		loc compilerapi.Location
		pos liveness.Position
	}
	chosen := make(map[compilerapi.InstID]best)

	consider := func(v liveness.InstValue, pos liveness.Position, loc compilerapi.Location) {
		if v.IsPhysical || v.Inst == compilerapi.InstIDInvalid {
			return
		}
		if cur, ok := chosen[v.Inst]; !ok || pos < cur.pos {
			chosen[v.Inst] = best{loc: loc, pos: pos}
		}
	}

	colored := 0
	for li, n := range byInterval {
		if li.Physical {
			continue
		}
		if n.color == noColor {
			continue
		}
		loc := compilerapi.Location{Kind: compilerapi.LocationRegister, Reg: rm.Machine(n.class, n.color)}
		consider(li.Value, li.Begin(), loc)
		colored++
	}

	spilled := 0
	for li, slot := range stackColors {
		if slot == noColor {
			continue
		}
		loc := compilerapi.Location{Kind: compilerapi.LocationStack, Slot: uint32(slot)}
		consider(li.Value, li.Begin(), loc)
		spilled++
	}

	for instID, b := range chosen {
		g.Inst(instID).SetLocation(b.loc)
	}

	return &Result{Colored: colored, Spilled: spilled, Rounds: rounds}, nil
}
