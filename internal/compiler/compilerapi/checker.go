package compilerapi

// checkSSADominance verifies spec's testable property #1: every non-phi input dominates
// the instruction, and every phi input dominates the corresponding predecessor's
// terminator.
func (g *Graph) checkSSADominance(pass string) {
	for _, blk := range g.RPOBlocks() {
		for cur := blk.Root(); cur != InstIDInvalid; cur = g.Inst(cur).Next() {
			inst := g.Inst(cur)
			if inst.opcode == OpcodePhi {
				for idx, producer := range inst.phiInputs {
					if producer == InstIDInvalid {
						continue
					}
					pred := blk.PredBlock(idx)
					if !g.producerAvailableAtBlockExit(producer, pred) {
						fail(pass, "phi %d input %d (v%d) does not dominate predecessor blk%d",
							inst.id, idx, producer, pred)
					}
				}
				continue
			}
			for n, in := range inst.inputs {
				if in.value == InstIDInvalid {
					continue
				}
				if !g.InstDominates(in.value, inst.id) {
					fail(pass, "inst %d input %d (v%d) does not dominate its use", inst.id, n, in.value)
				}
			}
		}
	}
}

func (g *Graph) producerAvailableAtBlockExit(producer InstID, blockExit BlockID) bool {
	p := g.Inst(producer)
	if p.blk == blockExit {
		return true
	}
	return g.IsDominatedBy(blockExit, p.blk)
}

// checkUseDefSymmetry verifies spec testable property #2: x in users(y) iff y in inputs(x).
func (g *Graph) checkUseDefSymmetry(pass string) {
	for i := 0; i < g.instPool.Allocated(); i++ {
		inst := g.instPool.View(i)
		if inst.blk == BlockIDInvalid {
			continue // removed/never placed
		}
		for n, in := range inst.inputs {
			if in.value == InstIDInvalid {
				continue
			}
			producer := g.Inst(in.value)
			found := false
			for _, u := range producer.users {
				if u.User == inst.id && u.Slot == n {
					found = true
					break
				}
			}
			if !found {
				fail(pass, "inst %d uses v%d at slot %d but is missing from its user list", inst.id, in.value, n)
			}
		}
		for _, u := range inst.users {
			user := g.Inst(u.User)
			if user.blk == BlockIDInvalid {
				fail(pass, "inst %d lists user %d but that user is detached", inst.id, u.User)
				continue
			}
			if u.Slot < 0 {
				// Phi-input use record (see build.go's phiSlotTag): the reciprocal link
				// lives in phiInputs, not inputs.
				predIdx := -(u.Slot + 1)
				if user.opcode != OpcodePhi || predIdx >= len(user.phiInputs) || user.phiInputs[predIdx] != inst.id {
					fail(pass, "inst %d lists phi user %d/pred %d but that edge does not point back", inst.id, u.User, predIdx)
				}
				continue
			}
			if u.Slot >= len(user.inputs) || user.inputs[u.Slot].value != inst.id {
				fail(pass, "inst %d lists user %d/slot %d but that slot does not point back", inst.id, u.User, u.Slot)
			}
		}
	}
}

// checkSaveStateLiveness performs the structural half of spec testable property #3: a
// SaveState's bookkeeping (Entries) must stay in lockstep with its actual inputs. The
// semantic half — "every movable reference live at this point is captured" — is not
// checked here, since it needs the live-range data this package does not compute.
func (g *Graph) checkSaveStateLiveness(pass string) {
	for i := 0; i < g.instPool.Allocated(); i++ {
		inst := g.instPool.View(i)
		if inst.blk == BlockIDInvalid || !inst.opcode.IsSaveState() {
			continue
		}
		ss := inst.saveState
		if ss == nil {
			fail(pass, "SaveState %d has no SaveStateData payload", inst.id)
		}
		if len(ss.Entries) != len(inst.inputs) {
			fail(pass, "SaveState %d has %d entries but %d inputs", inst.id, len(ss.Entries), len(inst.inputs))
		}
		for n, e := range ss.Entries {
			if e.Value != inst.inputs[n].value {
				fail(pass, "SaveState %d entry %d value mismatch with input", inst.id, n)
			}
		}
	}
}

// checkCallInlinedBalance verifies spec testable property #4: Call.Inlined/ReturnInlined
// balance on every path from entry to a non-throwing exit.
func (g *Graph) checkCallInlinedBalance(pass string) {
	rpo := g.RPOBlocks()
	depthOut := make(map[BlockID]int, len(rpo))
	seen := make(map[BlockID]bool, len(rpo))

	for _, blk := range rpo {
		depthIn := 0
		if blk.id != g.startBlock {
			first := true
			for i := 0; i < blk.Preds(); i++ {
				pred := blk.PredBlock(i)
				if !seen[pred] {
					continue
				}
				if first {
					depthIn = depthOut[pred]
					first = false
				} else if depthOut[pred] != depthIn {
					fail(pass, "blk%d has predecessors with mismatched inlining depth (%d vs %d)",
						blk.id, depthIn, depthOut[pred])
				}
			}
		}
		cur := depthIn
		var throwsOut bool
		for instID := blk.Root(); instID != InstIDInvalid; instID = g.Inst(instID).Next() {
			inst := g.Inst(instID)
			switch inst.opcode {
			case OpcodeCallInlined:
				cur++
			case OpcodeReturnInlined:
				cur--
				if cur < 0 {
					fail(pass, "blk%d: ReturnInlined with no matching Call.Inlined", blk.id)
				}
			}
			if inst.Flags().Has(FlagCanThrow) {
				throwsOut = true
			}
			switch inst.opcode {
			case OpcodeReturn, OpcodeReturnVoid:
				if cur != 0 && !throwsOut {
					fail(pass, "blk%d: exits with %d unbalanced inlined call(s)", blk.id, cur)
				}
			}
		}
		depthOut[blk.id] = cur
		seen[blk.id] = true
	}
}
