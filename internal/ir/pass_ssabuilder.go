package ir

// SsaBuilder promotes scalar (i32) stack slots the way Braun, Buchwald,
// Hack, Leißa, Mallon and Zwinkau's "Simple and Efficient Construction
// of Static Single Assignment Form" describes: reads of a promotable
// slot resolve to its reaching definition, inserting a new block
// parameter (their "phi") at any join point that needs one, and writes
// simply become that definition.
//
// Every block's predecessor SET is known upfront here (BasicBlock.Preds,
// derived from `used_by`), so every block is sealed from the start —
// unlike the paper's construction-interleaved-with-parsing setting,
// this pass never discovers a new predecessor after the fact. But
// "sealed" only means the predecessor set is complete; it says nothing
// about whether a given predecessor's own Loads/Stores have already
// been walked. A single forward pass over f.Blocks in layout order
// reaches a loop header before its back-edge predecessor (the body),
// so when the header needs that predecessor's reaching value, the
// predecessor isn't filled yet. The paper's "incomplete phi"
// bookkeeping is kept for exactly this: a phi operand that can't be
// resolved yet (its source block isn't filled) is recorded against that
// block and resolved once the block's own walk finishes, instead of
// being read early and recursing back into the header's own tentative
// phi. The cycle guard — recording a tentative block-parameter value
// before recursing into its own predecessors — is kept too, since
// without it a loop header's own back-edge would recurse forever.
//
// Array-typed Allocs are never promoted: their address is read with
// GetElemPtr/GetPtr at element granularity, not loaded/stored whole,
// which is exactly the "address escapes the direct load/store pair"
// condition findPromotableAllocs excludes.
//
// Grounded on spec.md §4.3; expressed as a type-switch walk over each
// block's instruction list, matching builder.go/builder_body.go's idiom.
func SsaBuilder(f *Function) bool {
	promotable := findPromotableAllocs(f)
	if len(promotable) == 0 {
		return false
	}

	defs := make(map[*Value]map[*BasicBlock]*Value, len(promotable))
	for _, alloc := range promotable {
		defs[alloc.Res] = make(map[*BasicBlock]*Value)
	}
	sb := &ssaBuilderState{f: f, defs: defs, incomplete: make(map[*BasicBlock][]incompletePhi)}

	for _, bb := range f.Blocks {
		bb.sealed = true // every block's predecessor set is known upfront; see doc comment above
	}

	for _, bb := range f.Blocks {
		insts := append([]Instruction(nil), bb.Insts...)
		for _, inst := range insts {
			switch in := inst.(type) {
			case *Load:
				if _, ok := defs[in.Addr]; !ok {
					continue
				}
				val := sb.readVariable(in.Addr, bb)
				ReplaceAllUses(in.Res, val)
				RemoveInst(bb, in)
			case *Store:
				if _, ok := defs[in.Addr]; !ok {
					continue
				}
				sb.writeVariable(in.Addr, bb, in.Val)
				RemoveInst(bb, in)
			}
		}
		bb.filled = true
		// Now that bb's own Loads/Stores are resolved, supply every phi
		// operand that was waiting on bb as its source block.
		for _, pending := range sb.incomplete[bb] {
			arg := sb.readVariable(pending.variable, bb)
			appendBlockArg(bb, pending.target, arg)
		}
		delete(sb.incomplete, bb)
	}

	for _, alloc := range promotable {
		RemoveInst(f.Entry, alloc)
	}
	return true
}

// incompletePhi records a phi operand this pass could not resolve
// immediately because its source block hadn't been filled yet: once
// that block is filled, its reaching value for variable is read and
// appended as target's newest block-parameter argument.
type incompletePhi struct {
	variable *Value
	target   *BasicBlock
}

type ssaBuilderState struct {
	f          *Function
	defs       map[*Value]map[*BasicBlock]*Value // alloc address -> block -> reaching value
	incomplete map[*BasicBlock][]incompletePhi   // unfilled source block -> phi operands waiting on it
}

func (sb *ssaBuilderState) writeVariable(variable *Value, block *BasicBlock, value *Value) {
	sb.defs[variable][block] = value
}

func (sb *ssaBuilderState) readVariable(variable *Value, block *BasicBlock) *Value {
	if v, ok := sb.defs[variable][block]; ok {
		return v
	}
	preds := block.Preds()
	var val *Value
	switch {
	case block == sb.f.Entry && len(preds) == 0:
		// No definition reaches the entry block on this path: the local
		// was never assigned before this read. Semantic analysis has
		// already accepted the program, so this is SysY's own
		// read-before-write behavior, not a builder error — materialize
		// the default zero value C-like languages give an uninitialized
		// local.
		c := NewConst(sb.f, 0)
		insertBeforeTerminator(sb.f.Entry, c)
		val = c.Res
	case len(preds) == 1:
		val = sb.readVariable(variable, preds[0])
	default:
		param := NewBlockParam(sb.f, block, I32Type{})
		sb.defs[variable][block] = param // memoize before recursing: cycle guard
		for _, pred := range preds {
			if !pred.filled {
				// pred's own Stores haven't been walked yet — a loop
				// back edge reached before its source block was
				// processed. Reading it now would recurse straight
				// back into block's own tentative phi instead of
				// finding pred's real reaching value; defer until
				// pred is filled.
				sb.incomplete[pred] = append(sb.incomplete[pred], incompletePhi{variable: variable, target: block})
				continue
			}
			arg := sb.readVariable(variable, pred)
			appendBlockArg(pred, block, arg)
		}
		val = param
	}
	sb.defs[variable][block] = val
	return val
}

// appendBlockArg patches pred's terminator to pass val as target's
// newest block parameter, for a parameter created after pred's Jump/
// Branch was already emitted.
func appendBlockArg(pred, target *BasicBlock, val *Value) {
	switch t := pred.Terminator().(type) {
	case *Jump:
		if t.Target == target {
			t.Args = append(t.Args, val)
			val.addUse(t)
		}
	case *Branch:
		if t.TrueTarget == target {
			t.TrueArgs = append(t.TrueArgs, val)
			val.addUse(t)
		}
		if t.FalseTarget == target {
			t.FalseArgs = append(t.FalseArgs, val)
			val.addUse(t)
		}
	}
}

// findPromotableAllocs returns every entry-block Alloc of a scalar i32
// slot whose address is used only as a Load/Store address — never
// stored as data, passed as a call argument, or fed into GetElemPtr/
// GetPtr (which would mean some use needs the slot's real memory
// address, not just its current value).
func findPromotableAllocs(f *Function) []*Alloc {
	var out []*Alloc
	for _, inst := range f.Entry.Insts {
		alloc, ok := inst.(*Alloc)
		if !ok {
			continue
		}
		if _, isI32 := alloc.Pointee.(I32Type); !isI32 {
			continue
		}
		if isPromotable(alloc) {
			out = append(out, alloc)
		}
	}
	return out
}

func isPromotable(alloc *Alloc) bool {
	for use := range alloc.Res.UsedBy {
		switch u := use.(type) {
		case *Load:
			// Always fine: alloc.Res can only appear as Load.Addr.
		case *Store:
			if u.Val == alloc.Res {
				return false // the address itself escapes as stored data
			}
		default:
			return false
		}
	}
	return true
}
