package compilerapi

// This file implements the IR core's mutation contract (spec section 4.1): use-def
// maintenance is automatic, so callers never manually patch a producer's user list.

// SetInput rewrites the value at consumer's input slot n to producer (InstIDInvalid to
// clear it), unlinking the old user record and linking the new one in O(1).
func (g *Graph) SetInput(consumer InstID, n int, producer InstID) {
	c := g.Inst(consumer)
	old := c.inputs[n]
	if old.value != InstIDInvalid {
		g.unlinkUser(old.value, old.userPos)
	}
	var pos int
	if producer != InstIDInvalid {
		pos = g.linkUser(producer, consumer, n)
	}
	c.inputs[n] = Input{value: producer, typ: c.inputs[n].typ, userPos: pos}
	g.recomputeRequiresState(c)
}

// AppendInput adds a new trailing operand slot to consumer bound to producer, returning its
// index. Used when an instruction's operand count grows after construction (e.g. adding a
// bridge input to a SaveState).
func (g *Graph) AppendInput(consumer InstID, producer InstID, typ DataType) int {
	c := g.Inst(consumer)
	idx := len(c.inputs)
	c.inputs = append(c.inputs, Input{typ: typ})
	if producer != InstIDInvalid {
		pos := g.linkUser(producer, consumer, idx)
		c.inputs[idx].value = producer
		c.inputs[idx].userPos = pos
	}
	g.recomputeRequiresState(c)
	return idx
}

func (g *Graph) recomputeRequiresState(i *Inst) {
	req := false
	for _, in := range i.inputs {
		if in.value != InstIDInvalid && g.Inst(in.value).opcode.IsSaveState() {
			req = true
			break
		}
	}
	if req {
		i.flags |= FlagRequiresState
	} else {
		i.flags &^= FlagRequiresState
	}
}

// GetSaveState returns the SaveState-opcode input of i, or InstIDInvalid if i does not
// require state. Panics if RequiresState is set but no SaveState input is found, which
// would itself be a StructuralInvariant bug.
func (g *Graph) GetSaveState(id InstID) InstID {
	i := g.Inst(id)
	if !i.RequiresState() {
		return InstIDInvalid
	}
	for _, in := range i.inputs {
		if in.value != InstIDInvalid && g.Inst(in.value).opcode.IsSaveState() {
			return in.value
		}
	}
	panicInvariant("GetSaveState", "requires_state set but no SaveState input found")
	return InstIDInvalid
}

func (g *Graph) linkUser(producer, user InstID, slot int) int {
	p := g.Inst(producer)
	pos := len(p.users)
	p.users = append(p.users, Use{User: user, Slot: slot})
	return pos
}

func (g *Graph) unlinkUser(producer InstID, pos int) {
	p := g.Inst(producer)
	last := len(p.users) - 1
	moved := p.users[last]
	p.users[pos] = moved
	p.users = p.users[:last]
	if pos != last && moved.Slot >= 0 {
		// Fix up the moved entry's reciprocal userPos; a phi-input record (negative Slot, see
		// phiSlotTag) has no userPos to fix.
		movedOwner := g.Inst(moved.User)
		movedOwner.inputs[moved.Slot].userPos = pos
	}
}

// ReplaceUsers rewrites every user edge that currently points at `from` to point at `to`
// instead, then empties from's user list.
func (g *Graph) ReplaceUsers(from, to InstID) {
	fromInst := g.Inst(from)
	users := fromInst.users
	fromInst.users = nil
	for _, u := range users {
		user := g.Inst(u.User)
		if u.Slot < 0 {
			// Phi-input use record (see phiSlotTag): rebind the phi edge itself.
			user.phiInputs[-(u.Slot + 1)] = to
			if to != InstIDInvalid {
				g.Inst(to).users = append(g.Inst(to).users, Use{User: u.User, Slot: u.Slot})
			}
			continue
		}
		user.inputs[u.Slot].value = to
		if to != InstIDInvalid {
			pos := g.linkUser(to, u.User, u.Slot)
			user.inputs[u.Slot].userPos = pos
		}
		g.recomputeRequiresState(user)
	}
}

// AppendInst inserts inst at the tail of blk's instruction list, wiring up predecessor
// edges if inst is a branch.
func (g *Graph) AppendInst(blk BlockID, inst *Inst) {
	b := g.Block(blk)
	inst.blk = blk
	inst.prev, inst.next = b.tail, InstIDInvalid
	if b.tail != InstIDInvalid {
		g.Inst(b.tail).next = inst.id
	} else {
		b.root = inst.id
	}
	b.tail = inst.id
	g.wireBranchEdges(b, inst)
}

// InsertBefore splices inst immediately before `before` in before's block.
func (g *Graph) InsertBefore(before InstID, inst *Inst) {
	at := g.Inst(before)
	b := g.Block(at.blk)
	inst.blk = at.blk
	inst.prev, inst.next = at.prev, before
	if at.prev != InstIDInvalid {
		g.Inst(at.prev).next = inst.id
	} else {
		b.root = inst.id
	}
	at.prev = inst.id
	g.wireBranchEdges(b, inst)
}

// InsertAfter splices inst immediately after `after` in after's block.
func (g *Graph) InsertAfter(after InstID, inst *Inst) {
	at := g.Inst(after)
	b := g.Block(at.blk)
	inst.blk = at.blk
	inst.prev, inst.next = after, at.next
	if at.next != InstIDInvalid {
		g.Inst(at.next).prev = inst.id
	} else {
		b.tail = inst.id
	}
	at.next = inst.id
	g.wireBranchEdges(b, inst)
}

// wireBranchEdges records the predecessor/successor relationship when inst is a
// block-terminating branch.
func (g *Graph) wireBranchEdges(b *BasicBlock, inst *Inst) {
	switch inst.opcode {
	case OpcodeJump, OpcodeIfTrue, OpcodeIfFalse:
		for _, t := range inst.targets {
			g.addEdge(b.id, t, inst.id)
		}
	}
}

func (g *Graph) addEdge(from, to BlockID, branch InstID) {
	succ := g.Block(from)
	target := g.Block(to)
	succ.succ = append(succ.succ, to)
	target.preds = append(target.preds, predEdge{blk: from, branch: branch})
	g.InvalidateControlFlow()
}

// RemoveInst detaches inst from its block's instruction list. By default it requires inst's
// user list to be empty; pass recursive=true to first recursively remove every now-dead
// input producer that this removal orphans (spec 4.1).
func (g *Graph) RemoveInst(id InstID, recursive bool) {
	inst := g.Inst(id)
	if len(inst.users) != 0 {
		if !recursive {
			panicInvariant("RemoveInst", "cannot remove instruction with live users")
		}
	}
	b := g.Block(inst.blk)
	if inst.prev != InstIDInvalid {
		g.Inst(inst.prev).next = inst.next
	} else {
		b.root = inst.next
	}
	if inst.next != InstIDInvalid {
		g.Inst(inst.next).prev = inst.prev
	} else {
		b.tail = inst.prev
	}

	orphans := make([]InstID, 0, len(inst.inputs))
	for n, in := range inst.inputs {
		if in.value == InstIDInvalid {
			continue
		}
		g.unlinkUser(in.value, in.userPos)
		inst.inputs[n] = Input{}
		if recursive && len(g.Inst(in.value).users) == 0 && !g.Inst(in.value).Flags().Has(FlagNoDCE) {
			orphans = append(orphans, in.value)
		}
	}
	inst.blk = BlockIDInvalid
	for _, o := range orphans {
		if o != id {
			g.RemoveInst(o, true)
		}
	}
}

// ReplaceInst substitutes `with` for `old` in old's block (same position) and rewrites
// old's users to reference `with`, then removes `old`.
func (g *Graph) ReplaceInst(old InstID, with *Inst) {
	g.InsertAfter(old, with)
	g.ReplaceUsers(old, with.id)
	g.RemoveInst(old, false)
}

// SplitBlockAfterInstruction splits blk so that everything after (and not including) `at`
// moves into a freshly allocated successor block; blk falls through to it via an implicit
// edge the caller must replace with a real terminator (e.g. when decomposing a conditional
// deopt into branch + Deoptimize, spec 4.2).
func (g *Graph) SplitBlockAfterInstruction(at InstID) BlockID {
	atInst := g.Inst(at)
	oldBlk := g.Block(atInst.blk)
	newBlk := g.NewBlock()

	rest := atInst.next
	atInst.next = InstIDInvalid
	oldBlk.tail = at

	newBlk.root = rest
	newBlk.tail = oldBlk.tail // placeholder, corrected below
	if rest == InstIDInvalid {
		newBlk.tail = InstIDInvalid
	} else {
		cur := rest
		var last InstID
		for cur != InstIDInvalid {
			g.Inst(cur).blk = newBlk.id
			last = cur
			cur = g.Inst(cur).next
		}
		g.Inst(rest).prev = InstIDInvalid
		newBlk.tail = last
	}

	// Successors of oldBlk now belong to newBlk.
	newBlk.succ = oldBlk.succ
	oldBlk.succ = nil
	for _, s := range newBlk.succ {
		target := g.Block(s)
		for i := range target.preds {
			if target.preds[i].blk == oldBlk.id {
				target.preds[i].blk = newBlk.id
			}
		}
	}
	g.InvalidateControlFlow()
	return newBlk.id
}

// MergeBlockInto splices succ's instructions onto the tail of dst and hands dst ownership of
// succ's outgoing edges (and those targets' reciprocal predecessor entries), leaving succ
// empty and unreachable. dst's own terminator, if any, must already have been removed before
// calling this. It is the inverse of SplitBlockAfterInstruction, used e.g. to fold a
// decomposed conditional deopt back into one block once nothing needs the split (spec 4.2).
func (g *Graph) MergeBlockInto(dst, succ BlockID) {
	d, s := g.Block(dst), g.Block(succ)

	if s.root != InstIDInvalid {
		for cur := s.root; cur != InstIDInvalid; cur = g.Inst(cur).next {
			g.Inst(cur).blk = dst
		}
		if d.tail != InstIDInvalid {
			g.Inst(d.tail).next = s.root
			g.Inst(s.root).prev = d.tail
		} else {
			d.root = s.root
		}
		d.tail = s.tail
		s.root, s.tail = InstIDInvalid, InstIDInvalid
	}

	d.succ = s.succ
	s.succ = nil
	for _, t := range d.succ {
		target := g.Block(t)
		for i := range target.preds {
			if target.preds[i].blk == succ {
				target.preds[i].blk = dst
			}
		}
	}
	g.InvalidateControlFlow()
}

// AppendBridge adds a bridge input to a SaveState instruction for a value that became live
// at the safepoint but was not yet captured (spec 4.2/4.3), assigning it vreg
// `virtualRegister`.
func (g *Graph) AppendBridge(saveState InstID, value InstID, virtualRegister uint32) {
	ss := g.Inst(saveState)
	g.AppendInput(saveState, value, g.Inst(value).typ)
	ss.saveState.Entries = append(ss.saveState.Entries, SaveStateEntry{Value: value, VReg: virtualRegister})
	ss.saveState.Virtualized = append(ss.saveState.Virtualized, false)
}
