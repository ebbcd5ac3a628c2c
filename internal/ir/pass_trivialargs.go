package ir

// RemoveTrivialArgs drops a block parameter that every incoming edge
// feeds either the parameter's own value back (a loop that never
// changes it) or one single common value: the parameter is then just
// that common value under another name, exactly as a trivial phi is in
// a conventional SSA representation. Per the representational choice
// recorded in DESIGN.md, there is no separate BlockArgRef instruction
// to rewrite — every operand that reads the parameter already holds
// its *Value directly, so "replace the parameter" is ordinary pointer
// substitution (ReplaceAllUses).
//
// Removes (and replaces) at most one parameter per call, relying on
// the pipeline running this pass to its own fixed point: eliminating
// one trivial parameter can make another trivial in turn (e.g. a
// second parameter whose only non-self argument was the first one).
//
// Grounded on spec.md §4.6.
func RemoveTrivialArgs(f *Function) bool {
	for _, bb := range f.Blocks {
		for i, param := range bb.Params {
			same, trivial := trivialArgValue(bb, i, param)
			if !trivial {
				continue
			}
			ReplaceAllUses(param, same)
			bb.Params = append(bb.Params[:i], bb.Params[i+1:]...)
			for inst := range bb.UsedBy {
				removeArgAt(inst, bb, i)
			}
			return true
		}
	}
	return false
}

// trivialArgValue inspects every edge into bb and reports the single
// non-self value argument index i always carries, if there is one.
func trivialArgValue(bb *BasicBlock, index int, param *Value) (*Value, bool) {
	var same *Value
	found := false
	consider := func(v *Value) bool {
		if v == param {
			return true
		}
		if !found {
			same, found = v, true
			return true
		}
		return same == v
	}
	for inst := range bb.UsedBy {
		switch t := inst.(type) {
		case *Jump:
			if t.Target == bb && index < len(t.Args) {
				if !consider(t.Args[index]) {
					return nil, false
				}
			}
		case *Branch:
			if t.TrueTarget == bb && index < len(t.TrueArgs) {
				if !consider(t.TrueArgs[index]) {
					return nil, false
				}
			}
			if t.FalseTarget == bb && index < len(t.FalseArgs) {
				if !consider(t.FalseArgs[index]) {
					return nil, false
				}
			}
		}
	}
	if !found {
		return nil, false // only self-referencing, or unreachable; leave it alone
	}
	return same, true
}

// removeArgAt deletes the slot-th argument any edge from inst into
// target carries, keeping used_by consistent (a value may still be
// referenced by another slot of the same instruction).
func removeArgAt(inst Instruction, target *BasicBlock, slot int) {
	switch t := inst.(type) {
	case *Jump:
		if t.Target == target && slot < len(t.Args) {
			v := t.Args[slot]
			t.Args = append(t.Args[:slot], t.Args[slot+1:]...)
			dropUseIfAbsent(inst, v)
		}
	case *Branch:
		if t.TrueTarget == target && slot < len(t.TrueArgs) {
			v := t.TrueArgs[slot]
			t.TrueArgs = append(t.TrueArgs[:slot], t.TrueArgs[slot+1:]...)
			dropUseIfAbsent(inst, v)
		}
		if t.FalseTarget == target && slot < len(t.FalseArgs) {
			v := t.FalseArgs[slot]
			t.FalseArgs = append(t.FalseArgs[:slot], t.FalseArgs[slot+1:]...)
			dropUseIfAbsent(inst, v)
		}
	}
}

func dropUseIfAbsent(inst Instruction, v *Value) {
	for _, op := range inst.Operands() {
		if op == v {
			return
		}
	}
	v.removeUse(inst)
}
