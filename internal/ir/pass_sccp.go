package ir

// SCCP is sparse conditional constant propagation: it tracks a lattice
// cell (unknown / known-constant / not-constant) per SSA value and a
// reachability flag per CFG edge simultaneously, so a branch on a
// constant condition stops propagation into its dead arm instead of
// merging it into the result. Block parameters are this IR's phi
// nodes: a parameter's cell is the meet of the arguments arriving on
// every edge that has actually been marked executable, not every
// statically possible predecessor.
//
// Grounded on spec.md §4.4's flow-worklist/ssa-worklist algorithm
// description, with the teacher's type-switch-over-Instruction idiom
// standing in for a textbook visitor class.

type latticeKind int

const (
	cellTop latticeKind = iota
	cellConst
	cellBottom
)

type cell struct {
	kind latticeKind
	val  int
}

func meetCell(a, b cell) cell {
	if a.kind == cellTop {
		return b
	}
	if b.kind == cellTop {
		return a
	}
	if a.kind == cellConst && b.kind == cellConst && a.val == b.val {
		return a
	}
	return cell{kind: cellBottom}
}

type flowEdge struct {
	from, to *BasicBlock
}

type sccpState struct {
	f          *Function
	cells      map[*Value]cell
	reachable  map[*BasicBlock]bool
	execEdge   map[flowEdge]bool
	flowWork   []flowEdge
	ssaWork    []Instruction
	ssaQueued  map[Instruction]bool
}

// SCCP runs sparse conditional constant propagation to a fixed point
// and rewrites the function: values proven constant are replaced by
// literal Consts, and Branches proven one-sided become Jumps. Returns
// whether anything changed.
func SCCP(f *Function) bool {
	st := &sccpState{
		f:         f,
		cells:     make(map[*Value]cell),
		reachable: make(map[*BasicBlock]bool),
		execEdge:  make(map[flowEdge]bool),
		ssaQueued: make(map[Instruction]bool),
	}
	for _, p := range f.Params {
		if p.Value != nil {
			st.cells[p.Value] = cell{kind: cellBottom}
		}
	}
	st.pushFlow(flowEdge{from: nil, to: f.Entry})

	for len(st.flowWork) > 0 || len(st.ssaWork) > 0 {
		for len(st.flowWork) > 0 {
			e := st.flowWork[0]
			st.flowWork = st.flowWork[1:]
			st.processFlowEdge(e)
		}
		for len(st.ssaWork) > 0 {
			inst := st.ssaWork[0]
			st.ssaWork = st.ssaWork[1:]
			delete(st.ssaQueued, inst)
			if inst.Block() != nil && !st.reachable[inst.Block()] {
				continue
			}
			st.visit(inst)
		}
	}

	changed := st.rewrite()
	if RemoveUnreachable(f) {
		changed = true
	}
	return changed
}

func (st *sccpState) getCell(v *Value) cell {
	if v == nil {
		return cell{kind: cellBottom}
	}
	if c, ok := st.cells[v]; ok {
		return c
	}
	return cell{kind: cellTop}
}

func (st *sccpState) updateCell(v *Value, c cell) {
	old := st.getCell(v)
	if old == c {
		return
	}
	st.cells[v] = c
	for user := range v.UsedBy {
		st.pushSSA(user)
	}
}

func (st *sccpState) pushFlow(e flowEdge) {
	if st.execEdge[e] {
		return
	}
	st.execEdge[e] = true
	st.flowWork = append(st.flowWork, e)
}

func (st *sccpState) pushSSA(inst Instruction) {
	if st.ssaQueued[inst] {
		return
	}
	st.ssaQueued[inst] = true
	st.ssaWork = append(st.ssaWork, inst)
}

func (st *sccpState) processFlowEdge(e flowEdge) {
	firstTime := !st.reachable[e.to]
	st.reachable[e.to] = true

	if e.from != nil {
		args := argsForEdge(e.from, e.to)
		for i, param := range e.to.Params {
			if i >= len(args) {
				continue
			}
			st.updateCell(param, meetCell(st.getCell(param), st.getCell(args[i])))
		}
	}

	if firstTime {
		for _, inst := range e.to.Insts {
			st.visit(inst)
		}
	}
}

// argsForEdge returns the block-argument list pred's terminator passes
// to succ (the Jump/Branch arm whose target is succ).
func argsForEdge(pred, succ *BasicBlock) []*Value {
	switch t := pred.Terminator().(type) {
	case *Jump:
		if t.Target == succ {
			return t.Args
		}
	case *Branch:
		if t.TrueTarget == succ && t.FalseTarget == succ {
			return t.TrueArgs // degenerate both-arms-same-target case
		}
		if t.TrueTarget == succ {
			return t.TrueArgs
		}
		if t.FalseTarget == succ {
			return t.FalseArgs
		}
	}
	return nil
}

func (st *sccpState) visit(inst Instruction) {
	switch t := inst.(type) {
	case *Const:
		st.updateCell(t.Res, cell{kind: cellConst, val: t.Val})
	case *Binary:
		lc, rc := st.getCell(t.Left), st.getCell(t.Right)
		switch {
		case lc.kind == cellBottom || rc.kind == cellBottom:
			st.updateCell(t.Res, cell{kind: cellBottom})
		case lc.kind == cellConst && rc.kind == cellConst:
			v, ok := foldBinary(t.Op, lc.val, rc.val)
			if ok {
				st.updateCell(t.Res, cell{kind: cellConst, val: v})
			} else {
				st.updateCell(t.Res, cell{kind: cellBottom})
			}
		}
	case *Load:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *GetElemPtr:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *GetPtr:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *Call:
		if t.Res != nil {
			st.updateCell(t.Res, cell{kind: cellBottom})
		}
	case *ZeroInit:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *Aggregate:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *Alloc:
		st.updateCell(t.Res, cell{kind: cellBottom})
	case *Branch:
		cc := st.getCell(t.Cond)
		switch cc.kind {
		case cellConst:
			if cc.val != 0 {
				st.pushFlow(flowEdge{from: t.Block(), to: t.TrueTarget})
			} else {
				st.pushFlow(flowEdge{from: t.Block(), to: t.FalseTarget})
			}
		case cellBottom:
			st.pushFlow(flowEdge{from: t.Block(), to: t.TrueTarget})
			st.pushFlow(flowEdge{from: t.Block(), to: t.FalseTarget})
		}
	case *Jump:
		st.pushFlow(flowEdge{from: t.Block(), to: t.Target})
	}
}

func foldBinary(op BinaryOp, l, r int) (int, bool) {
	switch op {
	case OpAdd:
		return l + r, true
	case OpSub:
		return l - r, true
	case OpMul:
		return l * r, true
	case OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case OpRem:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case OpAnd:
		return l & r, true
	case OpOr:
		return l | r, true
	case OpXor:
		return l ^ r, true
	case OpLt:
		return boolToInt(l < r), true
	case OpGt:
		return boolToInt(l > r), true
	case OpLe:
		return boolToInt(l <= r), true
	case OpGe:
		return boolToInt(l >= r), true
	case OpEq:
		return boolToInt(l == r), true
	case OpNe:
		return boolToInt(l != r), true
	default:
		return 0, false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rewrite materializes the fixed-point lattice: every value proven
// constant is replaced everywhere by a literal Const, and every Branch
// proven one-sided becomes an unconditional Jump carrying that arm's
// argument list.
func (st *sccpState) rewrite() bool {
	changed := false
	for _, bb := range st.f.Blocks {
		if !st.reachable[bb] {
			continue
		}
		insts := append([]Instruction(nil), bb.Insts...)
		for _, inst := range insts {
			if br, ok := inst.(*Branch); ok {
				cc := st.getCell(br.Cond)
				if cc.kind != cellConst {
					continue
				}
				var target *BasicBlock
				var args []*Value
				if cc.val != 0 {
					target, args = br.TrueTarget, br.TrueArgs
				} else {
					target, args = br.FalseTarget, br.FalseArgs
				}
				jmp := NewJump(target, args)
				bb.Insts[len(bb.Insts)-1] = jmp
				jmp.SetBlock(bb)
				delete(br.TrueTarget.UsedBy, Instruction(br))
				delete(br.FalseTarget.UsedBy, Instruction(br))
				target.UsedBy[jmp] = true
				for _, a := range args {
					a.removeUse(br)
					a.addUse(jmp)
				}
				br.Cond.removeUse(br)
				changed = true
			}
		}
	}

	for v, c := range st.cells {
		if c.kind != cellConst || len(v.UsedBy) == 0 {
			continue
		}
		if _, alreadyConst := v.Def.(*Const); alreadyConst {
			continue
		}
		target := v.Def.Block()
		if target == nil {
			target = st.f.Entry // a function parameter has no owning block
		}
		lit := NewConst(st.f, c.val)
		insertBeforeTerminator(target, lit)
		ReplaceAllUses(v, lit.Res)
		changed = true
	}
	return changed
}
