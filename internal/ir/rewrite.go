package ir

// ReplaceAllUses rewrites every instruction using old as an operand to
// use new instead, keeping both values' `used_by` sets consistent.
// Shared by every optimizer pass that substitutes one value for
// another: SsaBuilder (promoted loads), SCCP (constant folding), CSE
// (redundant computations), RemoveTrivialArgs (trivial block
// parameters).
func ReplaceAllUses(old, new *Value) {
	if old == nil || new == nil || old == new {
		return
	}
	users := make([]Instruction, 0, len(old.UsedBy))
	for inst := range old.UsedBy {
		users = append(users, inst)
	}
	for _, inst := range users {
		replaceOperand(inst, old, new)
		old.removeUse(inst)
		new.addUse(inst)
	}
}

func replaceOperand(inst Instruction, old, new *Value) {
	switch t := inst.(type) {
	case *Aggregate:
		replaceInSlice(t.Elems, old, new)
	case *Load:
		if t.Addr == old {
			t.Addr = new
		}
	case *Store:
		if t.Val == old {
			t.Val = new
		}
		if t.Addr == old {
			t.Addr = new
		}
	case *GetElemPtr:
		if t.Base == old {
			t.Base = new
		}
		if t.Index == old {
			t.Index = new
		}
	case *GetPtr:
		if t.Base == old {
			t.Base = new
		}
		if t.Index == old {
			t.Index = new
		}
	case *Binary:
		if t.Left == old {
			t.Left = new
		}
		if t.Right == old {
			t.Right = new
		}
	case *Call:
		replaceInSlice(t.Args, old, new)
	case *Branch:
		if t.Cond == old {
			t.Cond = new
		}
		replaceInSlice(t.TrueArgs, old, new)
		replaceInSlice(t.FalseArgs, old, new)
	case *Jump:
		replaceInSlice(t.Args, old, new)
	case *Return:
		if t.Val == old {
			t.Val = new
		}
	}
}

func replaceInSlice(s []*Value, old, new *Value) {
	for i, v := range s {
		if v == old {
			s[i] = new
		}
	}
}

// insertBeforeTerminator inserts inst immediately before bb's terminator
// (or at the end, if bb has none yet), registering its operand uses.
// Passes that synthesize a new pure instruction into an already-built
// block (SsaBuilder's zero-value placeholder, CSE never needs this)
// use this instead of Append, since Append always adds to the end.
func insertBeforeTerminator(bb *BasicBlock, inst Instruction) {
	inst.SetBlock(bb)
	if n := len(bb.Insts); n > 0 && bb.Insts[n-1].IsTerminator() {
		bb.Insts = append(bb.Insts[:n-1:n-1], inst, bb.Insts[n-1])
	} else {
		bb.Insts = append(bb.Insts, inst)
	}
	for _, op := range inst.Operands() {
		op.addUse(inst)
	}
}
