package compilerapi

// Loop is a natural loop: a header block dominating a back-edge source, plus the set of
// blocks belonging to it and any loops nested directly inside it (spec section 3, "loop
// tree").
type Loop struct {
	Header BlockID
	Depth  int
	Parent *Loop
	blocks map[BlockID]bool
	nested []*Loop
}

// Contains reports whether blk is a member of this loop (including nested loops).
func (l *Loop) Contains(blk BlockID) bool { return l.blocks[blk] }

// Nested returns the loops immediately nested inside this one.
func (l *Loop) Nested() []*Loop { return l.nested }

// RootLoop returns the synthetic depth-0 loop representing "outside any loop"; it has no
// header and Depth 0. A block inside a loop reaches its innermost loop via BasicBlock.Loop;
// a block outside every loop reports nil there rather than this root loop.
func (g *Graph) RootLoop() *Loop {
	if !g.loopValid {
		g.computeDominators()
	}
	return g.rootLoop
}

// detectLoops identifies loop headers (targets of a back edge per the dominator tree, spec
// 4.2's subPassLoopDetection) and builds the loop membership sets and nesting relation,
// bounded by the nesting depth PEA is willing to iterate (spec: "bounded by nesting depth
// <= 5; give up otherwise" — detection itself has no such bound, only PEA's fixpoint loop
// does, enforced in the pea package).
func (g *Graph) detectLoops(rpo []*BasicBlock) {
	g.rootLoop = &Loop{blocks: map[BlockID]bool{}}
	headers := map[BlockID]*Loop{}

	for _, blk := range rpo {
		blk.loop = nil
	}

	for _, blk := range rpo {
		for i := 0; i < blk.Preds(); i++ {
			pred := g.Block(blk.PredBlock(i))
			if pred.invalid {
				continue
			}
			if g.IsDominatedBy(pred.id, blk.id) {
				if _, ok := headers[blk.id]; !ok {
					headers[blk.id] = &Loop{Header: blk.id, blocks: map[BlockID]bool{blk.id: true}}
				}
			}
		}
	}

	// Populate membership: for each header, walk predecessors backward from each back-edge
	// source up to (and including) the header.
	for hdr, loop := range headers {
		g.collectLoopBody(hdr, loop)
	}

	// Assign each block its innermost containing loop and wire up nesting by membership:
	// loop A's parent is the innermost other loop B whose body contains A's header.
	var allLoops []*Loop
	for _, l := range headers {
		allLoops = append(allLoops, l)
	}
	for _, l := range allLoops {
		var parent *Loop
		for _, cand := range allLoops {
			if cand == l {
				continue
			}
			if cand.blocks[l.Header] && (parent == nil || parent.blocks[cand.Header]) {
				parent = cand
			}
		}
		if parent != nil {
			l.Parent = parent
			l.Depth = parent.Depth + 1
			parent.nested = append(parent.nested, l)
		} else {
			l.Parent = g.rootLoop
			l.Depth = 1
			g.rootLoop.nested = append(g.rootLoop.nested, l)
		}
	}

	for _, blk := range rpo {
		var innermost *Loop
		for _, l := range allLoops {
			if l.blocks[blk.id] {
				if innermost == nil || l.Depth > innermost.Depth {
					innermost = l
				}
			}
		}
		blk.loop = innermost
	}
}

// collectLoopBody walks predecessors of every back-edge source reaching hdr, adding blocks
// to loop.blocks until no new block is discovered (standard natural-loop body
// construction).
func (g *Graph) collectLoopBody(hdr BlockID, loop *Loop) {
	var backEdgeSources []BlockID
	for _, blk := range g.blocks {
		if blk.invalid {
			continue
		}
		for _, s := range blk.succ {
			if s == hdr && g.IsDominatedBy(blk.id, hdr) {
				backEdgeSources = append(backEdgeSources, blk.id)
			}
		}
	}
	worklist := append([]BlockID{}, backEdgeSources...)
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if loop.blocks[cur] {
			continue
		}
		loop.blocks[cur] = true
		blk := g.Block(cur)
		for i := 0; i < blk.Preds(); i++ {
			p := blk.PredBlock(i)
			if !loop.blocks[p] {
				worklist = append(worklist, p)
			}
		}
	}
}
