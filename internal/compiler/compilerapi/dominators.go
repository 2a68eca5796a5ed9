package compilerapi

// This file ports the dominator-tree construction from the teacher's
// ssa/pass_cfg.go — the "Simple, Fast Dominance Algorithm" of Cooper, Harvey & Kennedy
// (https://www.cs.rice.edu/~keith/EMBED/dom.pdf) — onto this IR's BlockID-indexed graph.

// RPOBlocks recomputes (if stale) and returns the reachable blocks of g in reverse
// post-order, the traversal every pass observes by default (spec section 5).
func (g *Graph) RPOBlocks() []*BasicBlock {
	if !g.domValid {
		g.computeDominators()
	}
	return g.rpoCache
}

func (g *Graph) computeDominators() {
	rpo := g.reversePostOrder()
	g.rpoCache = rpo
	for i, blk := range rpo {
		blk.reversePostOrder = i
	}

	doms := make([]*BasicBlock, len(g.blocks))
	entry := g.Block(g.startBlock)
	doms[entry.id] = entry

	changed := true
	for changed {
		changed = false
		for _, blk := range rpo[1:] {
			var newIDom *BasicBlock
			for i := 0; i < blk.Preds(); i++ {
				pred := g.Block(blk.PredBlock(i))
				if doms[pred.id] == nil {
					continue
				}
				if newIDom == nil {
					newIDom = pred
				} else {
					newIDom = intersectDoms(doms, newIDom, pred)
				}
			}
			if doms[blk.id] != newIDom {
				doms[blk.id] = newIDom
				changed = true
			}
		}
	}

	for _, blk := range rpo {
		if d := doms[blk.id]; d != nil {
			blk.domParent = d.id
		}
	}
	entry.domParent = entry.id

	g.domValid = true
	g.detectLoops(rpo)
	g.loopValid = true
}

func intersectDoms(doms []*BasicBlock, a, b *BasicBlock) *BasicBlock {
	for a != b {
		for a.reversePostOrder > b.reversePostOrder {
			a = doms[a.id]
		}
		for b.reversePostOrder > a.reversePostOrder {
			b = doms[b.id]
		}
	}
	return a
}

// reversePostOrder computes a reverse postorder over blocks reachable from the start block,
// respecting each block's successor order (assumed to already be in program order).
func (g *Graph) reversePostOrder() []*BasicBlock {
	entry := g.Block(g.startBlock)
	visited := make(map[BlockID]bool, len(g.blocks))
	var post []*BasicBlock

	const (
		unseen = iota
		seen
		done
	)
	state := make(map[BlockID]int, len(g.blocks))
	stack := []*BasicBlock{entry}
	state[entry.id] = seen
	for len(stack) > 0 {
		blk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch state[blk.id] {
		case seen:
			stack = append(stack, blk)
			for _, s := range blk.succ {
				succ := g.Block(s)
				if succ.invalid {
					continue
				}
				if state[succ.id] == unseen {
					state[succ.id] = seen
					stack = append(stack, succ)
				}
			}
			state[blk.id] = done
		case done:
			post = append(post, blk)
			visited[blk.id] = true
		}
	}
	// post is in postorder; reverse it in place.
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// IsDominatedBy reports whether `d` dominates `n` (every path from the entry to n passes
// through d), including n == d.
func (g *Graph) IsDominatedBy(n, d BlockID) bool {
	if !g.domValid {
		g.computeDominators()
	}
	blk := g.Block(n)
	for {
		if blk.id == d {
			return true
		}
		if blk.domParent == blk.id {
			return blk.id == d
		}
		blk = g.Block(blk.domParent)
	}
}

// InstDominates reports whether the instruction `def` dominates the instruction `use`,
// implementing the non-phi SSA dominance invariant from spec section 3/8: if they are in
// the same block, def must appear no later than use in list order; otherwise def's block
// must dominate use's block.
func (g *Graph) InstDominates(def, use InstID) bool {
	d, u := g.Inst(def), g.Inst(use)
	if d.blk == u.blk {
		for cur := d.id; cur != InstIDInvalid; cur = g.Inst(cur).next {
			if cur == u.id {
				return true
			}
		}
		return false
	}
	return g.IsDominatedBy(u.blk, d.blk)
}
