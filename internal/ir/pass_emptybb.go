package ir

// RemoveEmptyBB deletes a block whose entire body is a single
// unconditional Jump, splicing its predecessors directly onto its
// target: whatever argument each predecessor's edge supplied for the
// empty block's own parameters is substituted into the forwarded Jump/
// Branch argument list in its place, and any argument the empty
// block's Jump passed along unchanged (not one of its own parameters)
// is reused as-is for every redirected predecessor.
//
// A special case handles the entry block, which by construction has no
// predecessors of its own to redirect: if the entry block is itself
// just a single argument-less Jump, its sole successor is coalesced
// into it directly (the successor's instructions become the entry
// block's instructions) rather than left an unreachable orphan.
//
// Removes one block per call; the pipeline runs this to a fixed point,
// since collapsing one empty block can exposes another (a chain of
// trivial jumps left over from RemoveTrivialArgs or SCCP's branch
// simplification).
//
// Grounded on spec.md §4.7.
func RemoveEmptyBB(f *Function) bool {
	if coalesceEntry(f) {
		return true
	}
	for _, bb := range f.Blocks {
		if bb == f.Entry {
			continue
		}
		if len(bb.Insts) != 1 {
			continue
		}
		jmp, ok := bb.Insts[0].(*Jump)
		if !ok || jmp.Target == bb {
			continue
		}
		target := jmp.Target
		preds := make([]Instruction, 0, len(bb.UsedBy))
		for inst := range bb.UsedBy {
			preds = append(preds, inst)
		}
		for _, inst := range preds {
			bypassEdge(inst, bb, target, jmp)
		}
		f.RemoveBlock(bb)
		RemoveInst(bb, jmp)
		return true
	}
	return false
}

func paramIndex(params []*Value, v *Value) int {
	for i, p := range params {
		if p == v {
			return i
		}
	}
	return -1
}

// substituteArgs rewrites jmp's own argument list (which may reference
// bb's parameters, or values from outside bb entirely) against the
// concrete arguments one particular predecessor edge supplied for bb's
// parameters.
func substituteArgs(jmp *Jump, bbParams []*Value, predArgs []*Value) []*Value {
	out := make([]*Value, len(jmp.Args))
	for i, v := range jmp.Args {
		if idx := paramIndex(bbParams, v); idx >= 0 && idx < len(predArgs) {
			out[i] = predArgs[idx]
		} else {
			out[i] = v
		}
	}
	return out
}

func bypassEdge(inst Instruction, bb, target *BasicBlock, jmp *Jump) {
	retargetOne := func(oldArgs []*Value) []*Value {
		newArgs := substituteArgs(jmp, bb.Params, oldArgs)
		for _, a := range oldArgs {
			a.removeUse(inst)
		}
		for _, a := range newArgs {
			a.addUse(inst)
		}
		return newArgs
	}
	switch t := inst.(type) {
	case *Jump:
		if t.Target == bb {
			t.Args = retargetOne(t.Args)
			t.Target = target
			delete(bb.UsedBy, inst)
			target.UsedBy[inst] = true
		}
	case *Branch:
		if t.TrueTarget == bb {
			t.TrueArgs = retargetOne(t.TrueArgs)
			t.TrueTarget = target
			delete(bb.UsedBy, inst)
			target.UsedBy[inst] = true
		}
		if t.FalseTarget == bb {
			t.FalseArgs = retargetOne(t.FalseArgs)
			t.FalseTarget = target
			delete(bb.UsedBy, inst)
			target.UsedBy[inst] = true
		}
	}
}

// coalesceEntry merges the entry block's sole successor into it when
// the entry block itself is nothing but an argument-less Jump — the
// one case the general bypass above cannot reach, since the entry
// block has no predecessor edges for it to redirect.
func coalesceEntry(f *Function) bool {
	if len(f.Entry.Insts) != 1 {
		return false
	}
	jmp, ok := f.Entry.Insts[0].(*Jump)
	if !ok || len(jmp.Args) != 0 {
		return false
	}
	target := jmp.Target
	if target == f.Entry {
		return false
	}

	for inst := range target.UsedBy {
		if inst == Instruction(jmp) {
			continue
		}
		retargetBlock(inst, target, f.Entry)
	}

	f.Entry.Insts = target.Insts
	for _, inst := range f.Entry.Insts {
		inst.SetBlock(f.Entry)
	}
	f.Entry.Params = target.Params
	if f.End == target {
		f.End = f.Entry
	}
	target.Insts = nil
	f.RemoveBlock(target)
	return true
}

func retargetBlock(inst Instruction, oldTarget, newTarget *BasicBlock) {
	switch t := inst.(type) {
	case *Jump:
		if t.Target == oldTarget {
			t.Target = newTarget
			delete(oldTarget.UsedBy, inst)
			newTarget.UsedBy[inst] = true
		}
	case *Branch:
		if t.TrueTarget == oldTarget {
			t.TrueTarget = newTarget
			delete(oldTarget.UsedBy, inst)
			newTarget.UsedBy[inst] = true
		}
		if t.FalseTarget == oldTarget {
			t.FalseTarget = newTarget
			delete(oldTarget.UsedBy, inst)
			newTarget.UsedBy[inst] = true
		}
	}
}
