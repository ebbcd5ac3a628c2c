package ir

// RemoveUnreachable deletes every block with no reaching control flow
// (an empty `used_by` set, excluding the function's entry block, which
// is always reachable by definition) and cascades: once a block's
// instructions are gone, any other instruction whose result is left
// with no remaining users is dead too, even if its own block stays
// live. Builder output relies on this pass to clean up the "dangling"
// blocks a return/break/continue statement leaves its cursor pointing
// at (see builder_body.go) before any other pass ever inspects the
// function.
//
// Grounded on spec.md §4.8's worklist description; expressed here as a
// fixed-point loop over the function's block and instruction lists,
// matching the rest of this package's type-switch-over-Instruction
// idiom.
func RemoveUnreachable(f *Function) bool {
	changed := false
	for {
		progressed := false
		if removeUnreachableBlocks(f) {
			progressed = true
		}
		if removeDeadInstructions(f) {
			progressed = true
		}
		if !progressed {
			break
		}
		changed = true
	}
	return changed
}

func removeUnreachableBlocks(f *Function) bool {
	changed := false
	for {
		removed := false
		for _, bb := range f.Blocks {
			if bb == f.Entry {
				continue
			}
			if len(bb.UsedBy) > 0 {
				continue
			}
			deleteBlockInstructions(bb)
			f.RemoveBlock(bb)
			removed = true
			changed = true
			break // f.Blocks mutated; restart the scan
		}
		if !removed {
			break
		}
	}
	return changed
}

// deleteBlockInstructions removes every instruction in bb from the
// data-flow graph (operand and target `used_by` edges), leaving their
// results' own `used_by` sets to decide whether removeDeadInstructions
// can then clean up anything they alone were keeping alive.
func deleteBlockInstructions(bb *BasicBlock) {
	insts := append([]Instruction(nil), bb.Insts...)
	for _, inst := range insts {
		RemoveInst(bb, inst)
	}
}

// removeDeadInstructions deletes any side-effect-free instruction whose
// result has no remaining user, anywhere in the function. Store, Call,
// Branch, Jump and Return are never removed here — their "use" is the
// side effect itself, not a data dependency.
func removeDeadInstructions(f *Function) bool {
	changed := false
	for _, bb := range f.Blocks {
		insts := append([]Instruction(nil), bb.Insts...)
		for _, inst := range insts {
			if !isPure(inst) {
				continue
			}
			res := inst.Result()
			if res == nil || len(res.UsedBy) > 0 {
				continue
			}
			RemoveInst(bb, inst)
			changed = true
		}
	}
	return changed
}

func isPure(inst Instruction) bool {
	switch inst.(type) {
	case *Store, *Call, *Branch, *Jump, *Return:
		return false
	default:
		return true
	}
}
