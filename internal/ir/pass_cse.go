package ir

// CSE is local (single-block) value numbering: redundant Binary
// computations and address computations within one basic block
// collapse onto their first occurrence. Const instructions are not
// separately deduplicated here — unifying every equal-valued Const
// up front would erase the asymmetry described below before Binary
// ever got a chance to observe it. A Const a CSE'd Binary stops
// referencing is simply left in place; it has no side effect, and
// RemoveUnreachable's cascading dead-instruction sweep collects it
// whenever that pass next runs.
//
// Equality on the right-hand operand is "value equality" — two
// distinct Const instructions holding the same literal count as the
// same operand — but the left-hand operand is compared by identity
// only, even when it is itself a Const. This asymmetry (spec.md §9)
// is intentional, not a shortcut to later correct: `x - 3` computed
// twice from the same `x` and two separately-built `3` literals is
// recognized as redundant, but `3 - x` computed from two separately-
// built `3` literals is not, because the left-hand comparison never
// looks past the operand's own identity.
//
// Grounded on spec.md §4.5; "local" here has the same meaning as in
// the teacher's own pass set (one block's instruction list, scanned
// once, no cross-block lookup table).
func CSE(f *Function) bool {
	changed := false
	for _, bb := range f.Blocks {
		changed = cseBlock(bb) || changed
	}
	return changed
}

type cseKey struct {
	kind  string
	op    BinaryOp
	left  *Value
	right interface{}
}

func cseBlock(bb *BasicBlock) bool {
	changed := false
	table := make(map[cseKey]*Value)

	insts := append([]Instruction(nil), bb.Insts...)
	for _, inst := range insts {
		switch t := inst.(type) {
		case *Binary:
			k := cseKey{kind: "bin", op: t.Op, left: t.Left, right: valueKey(t.Right)}
			if existing, ok := table[k]; ok {
				ReplaceAllUses(t.Res, existing)
				RemoveInst(bb, t)
				changed = true
			} else {
				table[k] = t.Res
			}
		case *GetElemPtr:
			k := cseKey{kind: "gep", left: t.Base, right: valueKey(t.Index)}
			if existing, ok := table[k]; ok {
				ReplaceAllUses(t.Res, existing)
				RemoveInst(bb, t)
				changed = true
			} else {
				table[k] = t.Res
			}
		case *GetPtr:
			k := cseKey{kind: "getptr", left: t.Base, right: valueKey(t.Index)}
			if existing, ok := table[k]; ok {
				ReplaceAllUses(t.Res, existing)
				RemoveInst(bb, t)
				changed = true
			} else {
				table[k] = t.Res
			}
		}
	}
	return changed
}

// valueKey returns the key a value contributes when it is compared "by
// value": a Const's literal, or the value's own identity otherwise.
func valueKey(v *Value) interface{} {
	if c, ok := v.Def.(*Const); ok {
		return c.Val
	}
	return v
}
