// Function body lowering: the alloca/load/store skeleton for locals and
// parameters, structured control flow via new blocks and Branch/Jump,
// and the LVal addressing rules for plain arrays versus decayed array
// parameters. spec.md §4.1.
//
// A standing invariant simplifies every statement builder here: after
// buildStmt returns, b.cur always names a live, not-yet-terminated
// block. return/break/continue terminate the block they're emitted
// into and then point b.cur at a fresh, unreferenced block — any
// source code that textually follows (already flagged by semantic
// analysis as unreachable) lands harmlessly in that dangling block,
// which RemoveUnreachable prunes during optimization.
package ir

import (
	"strconv"

	"github.com/sysy-lang/sysyc/internal/ast"
	"github.com/sysy-lang/sysyc/internal/runtime"
	"github.com/sysy-lang/sysyc/internal/sema"
)

func (b *Builder) buildFunctionBody(fd *ast.FuncDef) {
	f := b.funcs[fd.Name]
	if f == nil || f.IsDecl {
		return
	}
	b.f = f
	b.localAddr = make(map[string]*Value)
	b.loops = nil

	entry := f.NewBlock("entry")
	f.Entry = entry
	end := f.NewBlock("end")
	f.End = end
	b.cur = entry

	b.retSlot = nil
	if _, ok := f.ReturnType.(I32Type); ok {
		alloc := NewAlloc(f, I32Type{})
		entry.Append(alloc)
		b.retSlot = alloc.Res
	}

	for i, p := range fd.Params {
		param := f.Params[i]
		argVal := NewFuncParam(f, param.Type)
		param.Value = argVal
		alloc := NewAlloc(f, param.Type)
		entry.Append(alloc)
		entry.Append(NewStore(argVal, alloc.Res))
		if sym := b.sema.Decl[p]; sym != nil {
			b.localAddr[sym.Name] = alloc.Res
		}
	}

	b.buildBlock(fd.Body)
	b.cur.Append(NewJump(end, nil))

	b.cur = end
	if b.retSlot != nil {
		load := NewLoad(f, b.retSlot)
		end.Append(load)
		end.Append(NewReturn(load.Res))
	} else {
		end.Append(NewReturn(nil))
	}
}

// --- statements ---

func (b *Builder) buildBlock(blk *ast.Block) {
	for _, item := range blk.Items {
		if item.Decl != nil {
			b.buildLocalDecl(item.Decl)
			continue
		}
		b.buildStmt(item.Stmt)
	}
}

func (b *Builder) buildStmt(st *ast.Stmt) {
	switch {
	case st.Assign != nil:
		val := b.buildExpr(st.Assign.Value)
		b.writeLVal(st.Assign.Target, val)
	case st.ExprStmt != nil:
		if st.ExprStmt.Expr != nil {
			b.buildExpr(st.ExprStmt.Expr)
		}
	case st.Block != nil:
		b.buildBlock(st.Block)
	case st.If != nil:
		b.buildIf(st.If)
	case st.While != nil:
		b.buildWhile(st.While)
	case st.Break != nil:
		b.buildBreak()
	case st.Continue != nil:
		b.buildContinue()
	case st.Return != nil:
		b.buildReturn(st.Return)
	}
}

func (b *Builder) buildIf(ifs *ast.IfStmt) {
	cond := b.buildExpr(ifs.Cond)
	thenBB := b.f.NewBlock("then")
	contBB := b.f.NewBlock("endif")

	if ifs.Else != nil {
		elseBB := b.f.NewBlock("else")
		b.cur.Append(NewBranch(cond, thenBB, nil, elseBB, nil))

		b.cur = thenBB
		b.buildStmt(ifs.Then)
		b.cur.Append(NewJump(contBB, nil))

		b.cur = elseBB
		b.buildStmt(ifs.Else)
		b.cur.Append(NewJump(contBB, nil))
	} else {
		b.cur.Append(NewBranch(cond, thenBB, nil, contBB, nil))

		b.cur = thenBB
		b.buildStmt(ifs.Then)
		b.cur.Append(NewJump(contBB, nil))
	}

	b.cur = contBB
}

func (b *Builder) buildWhile(ws *ast.WhileStmt) {
	condBB := b.f.NewBlock("while_cond")
	bodyBB := b.f.NewBlock("while_body")
	exitBB := b.f.NewBlock("while_exit")

	b.cur.Append(NewJump(condBB, nil))

	b.cur = condBB
	cond := b.buildExpr(ws.Cond)
	b.cur.Append(NewBranch(cond, bodyBB, nil, exitBB, nil))

	b.cur = bodyBB
	b.loops = append(b.loops, loopCtx{entry: condBB, exit: exitBB})
	b.buildStmt(ws.Body)
	b.loops = b.loops[:len(b.loops)-1]
	b.cur.Append(NewJump(condBB, nil))

	b.cur = exitBB
}

func (b *Builder) buildBreak() {
	top := b.loops[len(b.loops)-1]
	b.cur.Append(NewJump(top.exit, nil))
	b.cur = b.f.NewBlock("after_break")
}

func (b *Builder) buildContinue() {
	top := b.loops[len(b.loops)-1]
	b.cur.Append(NewJump(top.entry, nil))
	b.cur = b.f.NewBlock("after_continue")
}

func (b *Builder) buildReturn(rs *ast.ReturnStmt) {
	if rs.Value != nil {
		val := b.buildExpr(rs.Value)
		if b.retSlot != nil {
			b.cur.Append(NewStore(val, b.retSlot))
		}
	}
	b.cur.Append(NewJump(b.f.End, nil))
	b.cur = b.f.NewBlock("after_return")
}

// --- local declarations ---

func (b *Builder) buildLocalDecl(d *ast.Decl) {
	switch {
	case d.Const != nil:
		for _, def := range d.Const.Defs {
			sym := b.sema.Decl[def]
			if sym == nil {
				continue
			}
			if _, isArray := sym.Type.(sema.ArrayType); !isArray {
				continue // scalar const: folded to a literal at each use
			}
			b.buildLocalVar(sym, def.Value)
		}
	case d.Var != nil:
		for _, def := range d.Var.Defs {
			sym := b.sema.Decl[def]
			if sym == nil {
				continue
			}
			b.buildLocalVar(sym, def.Value)
		}
	}
}

func (b *Builder) buildLocalVar(sym *sema.Symbol, init *ast.InitVal) {
	irType := toIRType(sym.Type)
	alloc := NewAlloc(b.f, irType)
	insertBeforeTerminator(b.f.Entry, alloc)
	b.localAddr[sym.Name] = alloc.Res

	switch arr := sym.Type.(type) {
	case sema.ArrayType:
		if init == nil {
			return // indeterminate contents, like an uninitialized C array
		}
		// SysY zero-fills any element a partial initializer doesn't
		// mention, so clear the whole slot before overwriting the
		// explicitly given elements.
		z := NewZeroInit(b.f, irType)
		b.cur.Append(z)
		b.cur.Append(NewStore(z.Res, alloc.Res))

		flat := make([]*ast.Expr, product(arr.Dims))
		flattenInit(init, arr.Dims, flat, 0)
		for i, e := range flat {
			if e == nil {
				continue
			}
			val := b.buildExpr(e)
			addr := b.indexFlat(alloc.Res, arr.Dims, i)
			b.cur.Append(NewStore(val, addr))
		}
	default:
		if init != nil && init.Expr != nil {
			val := b.buildExpr(init.Expr)
			b.cur.Append(NewStore(val, alloc.Res))
		}
	}
}

// indexFlat decomposes a flat element index into one subscript per
// dimension and chains a GetElemPtr per subscript.
func (b *Builder) indexFlat(base *Value, dims []int, flatIndex int) *Value {
	cur := base
	rem := flatIndex
	for i := range dims {
		size := product(dims[i+1:])
		ix := rem / size
		rem = rem % size
		c := b.constValue(ix)
		gep := NewGetElemPtr(b.f, cur, c)
		b.cur.Append(gep)
		cur = gep.Res
	}
	return cur
}

// --- LVal addressing ---

// addrForLVal computes the address (or, for an unindexed/partially
// indexed array, the decayed pointer value) an LVal denotes. The
// second return reports whether the result is a scalar i32 address
// still needing a Load — false means the returned Value is already the
// usable pointer value (array-to-pointer decay, or a bare decayed
// parameter passed through unchanged).
func (b *Builder) addrForLVal(sym *sema.Symbol, indices []*ast.Expr) (*Value, bool) {
	base := b.localOrGlobalAddr(sym)
	switch t := sym.Type.(type) {
	case sema.PointerType:
		ptrVal := b.loadValue(base)
		if len(indices) == 0 {
			return ptrVal, false
		}
		idx0 := b.buildExpr(indices[0])
		gp := NewGetPtr(b.f, ptrVal, idx0)
		b.cur.Append(gp)
		totalDims := 1
		if arr, ok := t.Elem.(sema.ArrayType); ok {
			totalDims += len(arr.Dims)
		}
		return b.chaseElemPtr(gp.Res, indices[1:], totalDims-1)
	case sema.ArrayType:
		return b.chaseElemPtr(base, indices, len(t.Dims))
	default:
		return base, true
	}
}

// chaseElemPtr applies up to len(indices) GetElemPtr steps, each
// narrowing one array dimension, starting from an address with
// totalDims remaining dimensions. If indices run out before reaching a
// scalar, one more zero-index GetElemPtr decays the remainder to a
// plain pointer value.
func (b *Builder) chaseElemPtr(addr *Value, indices []*ast.Expr, totalDims int) (*Value, bool) {
	cur := addr
	for _, e := range indices {
		iv := b.buildExpr(e)
		gep := NewGetElemPtr(b.f, cur, iv)
		b.cur.Append(gep)
		cur = gep.Res
	}
	if len(indices) >= totalDims {
		return cur, true
	}
	zero := b.constValue(0)
	gep := NewGetElemPtr(b.f, cur, zero)
	b.cur.Append(gep)
	return gep.Res, false
}

func (b *Builder) localOrGlobalAddr(sym *sema.Symbol) *Value {
	if addr, ok := b.localAddr[sym.Name]; ok {
		return addr
	}
	return b.globalAddr[sym.Name]
}

func (b *Builder) loadValue(addr *Value) *Value {
	l := NewLoad(b.f, addr)
	b.cur.Append(l)
	return l.Res
}

func (b *Builder) constValue(v int) *Value {
	c := NewConst(b.f, v)
	b.cur.Append(c)
	return c.Res
}

func (b *Builder) readLVal(lv *ast.LVal) *Value {
	sym := b.sema.Ref[lv]
	if sym.Kind == sema.SymbolConst {
		if _, isArray := sym.Type.(sema.ArrayType); !isArray {
			return b.constValue(sym.ConstValue)
		}
	}
	addr, scalar := b.addrForLVal(sym, lv.Indices)
	if !scalar {
		return addr
	}
	return b.loadValue(addr)
}

func (b *Builder) writeLVal(lv *ast.LVal, val *Value) {
	sym := b.sema.Ref[lv]
	addr, _ := b.addrForLVal(sym, lv.Indices)
	b.cur.Append(NewStore(val, addr))
}

// --- expressions ---

func (b *Builder) buildExpr(e *ast.Expr) *Value {
	result := b.buildLAnd(e.Left)
	for _, op := range e.Ops {
		result = b.lowerOr(result, op.Right)
	}
	return result
}

func (b *Builder) buildLAnd(e *ast.LAndExpr) *Value {
	result := b.buildEq(e.Left)
	for _, op := range e.Ops {
		result = b.lowerAnd(result, op.Right)
	}
	return result
}

// lowerOr short-circuits: if lhs is already true, the result is 1
// without evaluating rhs; otherwise the result is rhs's truth value.
// Both paths join at a block parameter carrying the 0/1 result, so ||
// behaves as an ordinary int-valued expression per SPEC_FULL.md.
func (b *Builder) lowerOr(lhs *Value, rhsExpr *ast.LAndExpr) *Value {
	lhsBool := b.toBool(lhs)
	contBB := b.f.NewBlock("lor_rhs")
	mergeBB := b.f.NewBlock("lor_end")
	param := NewBlockParam(b.f, mergeBB, I32Type{})

	one := b.constValue(1)
	b.cur.Append(NewBranch(lhsBool, mergeBB, []*Value{one}, contBB, nil))

	b.cur = contBB
	rhsVal := b.buildEq(rhsExpr.Left)
	for _, op := range rhsExpr.Ops {
		rhsVal = b.lowerAnd(rhsVal, op.Right)
	}
	rhsBool := b.toBool(rhsVal)
	b.cur.Append(NewJump(mergeBB, []*Value{rhsBool}))

	b.cur = mergeBB
	return param
}

func (b *Builder) lowerAnd(lhs *Value, rhsExpr *ast.EqExpr) *Value {
	lhsBool := b.toBool(lhs)
	contBB := b.f.NewBlock("land_rhs")
	mergeBB := b.f.NewBlock("land_end")
	param := NewBlockParam(b.f, mergeBB, I32Type{})

	zero := b.constValue(0)
	b.cur.Append(NewBranch(lhsBool, contBB, nil, mergeBB, []*Value{zero}))

	b.cur = contBB
	rhsVal := b.buildEq(rhsExpr)
	rhsBool := b.toBool(rhsVal)
	b.cur.Append(NewJump(mergeBB, []*Value{rhsBool}))

	b.cur = mergeBB
	return param
}

func (b *Builder) toBool(v *Value) *Value {
	zero := b.constValue(0)
	bin := NewBinary(b.f, OpNe, v, zero)
	b.cur.Append(bin)
	return bin.Res
}

func (b *Builder) buildEq(e *ast.EqExpr) *Value {
	result := b.buildRel(e.Left)
	for _, op := range e.Ops {
		right := b.buildRel(op.Right)
		opc := OpEq
		if op.Op == "!=" {
			opc = OpNe
		}
		bin := NewBinary(b.f, opc, result, right)
		b.cur.Append(bin)
		result = bin.Res
	}
	return result
}

func (b *Builder) buildRel(e *ast.RelExpr) *Value {
	result := b.buildAdd(e.Left)
	for _, op := range e.Ops {
		right := b.buildAdd(op.Right)
		var opc BinaryOp
		switch op.Op {
		case "<":
			opc = OpLt
		case "<=":
			opc = OpLe
		case ">":
			opc = OpGt
		default: // ">="
			opc = OpGe
		}
		bin := NewBinary(b.f, opc, result, right)
		b.cur.Append(bin)
		result = bin.Res
	}
	return result
}

func (b *Builder) buildAdd(e *ast.AddExpr) *Value {
	result := b.buildMul(e.Left)
	for _, op := range e.Ops {
		right := b.buildMul(op.Right)
		opc := OpAdd
		if op.Op == "-" {
			opc = OpSub
		}
		bin := NewBinary(b.f, opc, result, right)
		b.cur.Append(bin)
		result = bin.Res
	}
	return result
}

func (b *Builder) buildMul(e *ast.MulExpr) *Value {
	result := b.buildUnary(e.Left)
	for _, op := range e.Ops {
		right := b.buildUnary(op.Right)
		var opc BinaryOp
		switch op.Op {
		case "*":
			opc = OpMul
		case "/":
			opc = OpDiv
		default: // "%"
			opc = OpRem
		}
		bin := NewBinary(b.f, opc, result, right)
		b.cur.Append(bin)
		result = bin.Res
	}
	return result
}

func (b *Builder) buildUnary(e *ast.UnaryExpr) *Value {
	if e.Unary != nil {
		operand := b.buildUnary(e.Unary.Operand)
		switch e.Unary.Op {
		case "-":
			zero := b.constValue(0)
			bin := NewBinary(b.f, OpSub, zero, operand)
			b.cur.Append(bin)
			return bin.Res
		case "!":
			zero := b.constValue(0)
			bin := NewBinary(b.f, OpEq, operand, zero)
			b.cur.Append(bin)
			return bin.Res
		default: // "+"
			return operand
		}
	}
	return b.buildCallOrPrimary(e.Primary)
}

func (b *Builder) buildCallOrPrimary(e *ast.CallOrPrimary) *Value {
	if e.Call != nil {
		return b.buildCall(e.Call)
	}
	return b.buildPrimary(e.Primary)
}

func (b *Builder) buildCall(ce *ast.CallExpr) *Value {
	switch ce.Func {
	case "starttime":
		return b.emitHiddenTimerCall(runtime.StartTimeSymbol, ce.Pos.Line)
	case "stoptime":
		return b.emitHiddenTimerCall(runtime.StopTimeSymbol, ce.Pos.Line)
	}

	target := b.funcs[ce.Func]
	args := make([]*Value, len(ce.Args))
	for i, a := range ce.Args {
		args[i] = b.buildExpr(a)
	}
	call := NewCall(b.f, target, args)
	b.cur.Append(call)
	return call.Res
}

func (b *Builder) emitHiddenTimerCall(symbol string, line int) *Value {
	target := b.funcs[symbol]
	lineVal := b.constValue(line)
	call := NewCall(b.f, target, []*Value{lineVal})
	b.cur.Append(call)
	return call.Res
}

func (b *Builder) buildPrimary(e *ast.PrimaryExpr) *Value {
	switch {
	case e.Paren != nil:
		return b.buildExpr(e.Paren)
	case e.Number != nil:
		return b.constValue(parseIntLiteral(*e.Number))
	case e.LVal != nil:
		return b.readLVal(e.LVal)
	}
	return nil
}

// parseIntLiteral parses a SysY integer literal (decimal, 0-octal, or
// 0x-hex); the lexer only ever produces well-formed ones.
func parseIntLiteral(lit string) int {
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		panic("ir: malformed integer literal " + lit)
	}
	return int(v)
}
