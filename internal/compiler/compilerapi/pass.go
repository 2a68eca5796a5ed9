package compilerapi

import "fmt"

// Pass is the uniform entry point every optimization implements (spec section 6):
// "run(graph) bool" indicating whether the graph was changed.
type Pass interface {
	Name() string
	Run(g *Graph) (changed bool, err error)
}

// MarkUnreachableBlocksInvalid flags every block not reachable from the start block as
// invalid (ported from the teacher's passDeadBlockEliminationOpt). It is safe to call
// before the dominator tree is built; it performs its own reachability walk.
func (g *Graph) MarkUnreachableBlocksInvalid() {
	reachable := make(map[BlockID]bool, len(g.blocks))
	stack := []BlockID{g.startBlock}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		blk := g.Block(id)
		for _, s := range blk.succ {
			if !reachable[s] {
				stack = append(stack, s)
			}
		}
	}
	for _, blk := range g.blocks {
		if !reachable[blk.id] {
			blk.invalid = true
		}
	}
	g.InvalidateControlFlow()
}

// RunChecker runs GraphChecker when CheckerEnabled is true; callers invoke this after every
// optimization pass in debug builds (spec section 4.1). It panics with an
// *InvariantViolation on the first structural defect found.
func (g *Graph) RunChecker(pass string) {
	if !CheckerEnabled {
		return
	}
	g.checkSSADominance(pass)
	g.checkUseDefSymmetry(pass)
	g.checkSaveStateLiveness(pass)
	g.checkCallInlinedBalance(pass)
}

func fail(pass, format string, args ...interface{}) {
	panicInvariant(pass, fmt.Sprintf(format, args...))
}
