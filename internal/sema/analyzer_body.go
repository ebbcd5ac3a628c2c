package sema

import (
	"github.com/sysy-lang/sysyc/internal/ast"
	"github.com/sysy-lang/sysyc/internal/errors"
)

// funcCtx carries the per-function state threaded through body
// analysis: the function being checked, whether it returns int, and the
// current loop nesting depth (for break/continue validity). The
// "definitely assigned" name set used by the uninitialized-use check is
// passed separately as an assignedSet.
type funcCtx struct {
	fn        *ast.FuncDef
	returnsInt bool
	loopDepth int
}

// assignedSet is a lightweight persistent set: cheap to copy at branch
// points, which the uninitialized-use check does at every if/while.
type assignedSet map[string]bool

func (s assignedSet) clone() assignedSet {
	out := make(assignedSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

// intersect keeps only names assigned on every branch, matching the
// conservative "must be assigned on all incoming paths" rule.
func intersect(sets ...assignedSet) assignedSet {
	if len(sets) == 0 {
		return assignedSet{}
	}
	out := sets[0].clone()
	for _, s := range sets[1:] {
		for k := range out {
			if !s[k] {
				delete(out, k)
			}
		}
	}
	return out
}

func (a *Analyzer) analyzeFunctionBody(fd *ast.FuncDef) {
	ctx := &funcCtx{fn: fd, returnsInt: fd.ReturnType == "int"}
	fnScope := newScope(a.global)
	assigned := assignedSet{}

	for _, p := range fd.Params {
		if existing := fnScope.lookup(p.Name); existing != nil {
			a.error(errors.DuplicateDeclaration(p.Name, p.Pos))
			continue
		}
		var typ Type
		if !p.IsArray() {
			typ = IntType{}
		} else {
			dims := a.evalDims(p.ExtraDims)
			if len(dims) == 0 {
				typ = PointerType{Elem: IntType{}}
			} else {
				typ = PointerType{Elem: ArrayType{Dims: dims}}
			}
		}
		sym := &Symbol{Name: a.uniqueName(p.Name), Source: p.Name, Kind: SymbolParameter, Type: typ}
		fnScope.define(p.Name, sym)
		a.result.Decl[p] = sym
		assigned[sym.Name] = true
	}

	returns := a.walkBlock(fd.Body, fnScope, ctx, assigned)
	if ctx.returnsInt && !returns {
		a.error(errors.MissingReturn(fd.Name, "int", fd.Pos))
	}
}

// walkBlock walks a block's items in a fresh child scope and reports
// whether the block is guaranteed to return on every path reaching its
// end (used both for the missing-return check and to flag dead code
// following an unconditional return/break/continue).
func (a *Analyzer) walkBlock(b *ast.Block, parent *scope, ctx *funcCtx, assigned assignedSet) bool {
	s := newScope(parent)
	terminated := false
	for _, item := range b.Items {
		if terminated {
			a.warn(errors.UnreachableCode(blockItemPos(item)))
		}
		switch {
		case item.Decl != nil:
			a.walkLocalDecl(item.Decl, s, assigned)
		case item.Stmt != nil:
			if a.walkStmt(item.Stmt, s, ctx, assigned) {
				terminated = true
			}
		}
	}
	return terminated
}

func blockItemPos(item *ast.BlockItem) ast.Position {
	switch {
	case item.Decl != nil && item.Decl.Const != nil:
		return item.Decl.Const.Pos
	case item.Decl != nil && item.Decl.Var != nil:
		return item.Decl.Var.Pos
	case item.Stmt != nil:
		return item.Stmt.Unwrap().NodePos()
	default:
		return ast.Position{}
	}
}

func (a *Analyzer) walkLocalDecl(d *ast.Decl, s *scope, assigned assignedSet) {
	switch {
	case d.Const != nil:
		for _, def := range d.Const.Defs {
			a.walkLocalConst(def, s, assigned)
		}
	case d.Var != nil:
		for _, def := range d.Var.Defs {
			a.walkLocalVar(def, s, assigned)
		}
	}
}

func (a *Analyzer) walkLocalConst(def *ast.ConstDef, s *scope, assigned assignedSet) {
	if _, ok := s.symbols[def.Name]; ok {
		a.error(errors.DuplicateDeclaration(def.Name, def.Pos))
	}
	dims := a.evalDimsInScope(def.Dims, s, assigned)

	sym := &Symbol{Name: a.uniqueName(def.Name), Source: def.Name, Kind: SymbolConst}
	if len(dims) == 0 {
		sym.Type = IntType{}
		lookup := func(name string) (int, bool) {
			sym := s.lookup(name)
			if sym == nil || sym.Kind != SymbolConst || !sym.IsConstInit {
				return 0, false
			}
			return sym.ConstValue, true
		}
		if def.Value.Expr != nil {
			if v, ok := evalConst(def.Value.Expr, lookup); ok {
				sym.ConstValue, sym.IsConstInit = v, true
			} else {
				a.error(errors.NewSemanticError(errors.ErrorGenericSemantic, "const initializer must be a compile-time constant expression", def.Pos).Build())
			}
			a.walkExpr(def.Value.Expr, s, assigned)
		}
	} else {
		sym.Type = ArrayType{Dims: dims}
		a.walkInitVal(def.Value, s, assigned)
	}

	s.define(def.Name, sym)
	a.result.Decl[def] = sym
	assigned[sym.Name] = true
}

func (a *Analyzer) walkLocalVar(def *ast.VarDef, s *scope, assigned assignedSet) {
	if _, ok := s.symbols[def.Name]; ok {
		a.error(errors.DuplicateDeclaration(def.Name, def.Pos))
	}
	dims := a.evalDimsInScope(def.Dims, s, assigned)

	sym := &Symbol{Name: a.uniqueName(def.Name), Source: def.Name, Kind: SymbolVariable}
	if len(dims) == 0 {
		sym.Type = IntType{}
	} else {
		sym.Type = ArrayType{Dims: dims}
	}
	s.define(def.Name, sym)
	a.result.Decl[def] = sym

	if def.Value != nil {
		a.walkInitVal(def.Value, s, assigned)
		assigned[sym.Name] = true
	}
}

func (a *Analyzer) evalDimsInScope(exprs []*ast.Expr, s *scope, assigned assignedSet) []int {
	dims := make([]int, len(exprs))
	for i, e := range exprs {
		a.walkExpr(e, s, assigned)
		v, ok := evalConst(e, func(name string) (int, bool) {
			sym := s.lookup(name)
			if sym == nil || sym.Kind != SymbolConst || !sym.IsConstInit {
				return 0, false
			}
			return sym.ConstValue, true
		})
		if !ok {
			a.error(errors.NewSemanticError(errors.ErrorGenericSemantic, "array dimension must be a compile-time constant expression", e.NodePos()).Build())
			continue
		}
		dims[i] = v
	}
	return dims
}

func (a *Analyzer) walkInitVal(iv *ast.InitVal, s *scope, assigned assignedSet) {
	switch {
	case iv.Expr != nil:
		a.walkExpr(iv.Expr, s, assigned)
	default:
		for _, e := range iv.Elems {
			a.walkInitVal(e, s, assigned)
		}
	}
}

// walkStmt walks one statement and reports whether it is guaranteed to
// terminate the enclosing block (return on every path, or an
// unconditional break/continue).
func (a *Analyzer) walkStmt(st *ast.Stmt, s *scope, ctx *funcCtx, assigned assignedSet) bool {
	switch {
	case st.Assign != nil:
		a.walkAssign(st.Assign, s, assigned)
		return false
	case st.ExprStmt != nil:
		if st.ExprStmt.Expr != nil {
			a.walkExpr(st.ExprStmt.Expr, s, assigned)
		}
		return false
	case st.Block != nil:
		return a.walkBlock(st.Block, s, ctx, assigned)
	case st.If != nil:
		a.walkExpr(st.If.Cond, s, assigned)
		thenAssigned := assigned.clone()
		thenReturns := a.walkStmt(st.If.Then, s, ctx, thenAssigned)
		if st.If.Else == nil {
			return false
		}
		elseAssigned := assigned.clone()
		elseReturns := a.walkStmt(st.If.Else, s, ctx, elseAssigned)
		merged := intersect(thenAssigned, elseAssigned)
		for k := range merged {
			assigned[k] = true
		}
		return thenReturns && elseReturns
	case st.While != nil:
		a.walkExpr(st.While.Cond, s, assigned)
		ctx.loopDepth++
		bodyAssigned := assigned.clone()
		a.walkStmt(st.While.Body, s, ctx, bodyAssigned)
		ctx.loopDepth--
		return false
	case st.Break != nil:
		if ctx.loopDepth == 0 {
			a.error(errors.LoopControlOutsideLoop("break", st.Break.Pos))
		}
		return true
	case st.Continue != nil:
		if ctx.loopDepth == 0 {
			a.error(errors.LoopControlOutsideLoop("continue", st.Continue.Pos))
		}
		return true
	case st.Return != nil:
		if st.Return.Value != nil {
			a.walkExpr(st.Return.Value, s, assigned)
			if !ctx.returnsInt {
				a.error(errors.TypeMismatch("void", "int", st.Return.Pos))
			}
		} else if ctx.returnsInt {
			a.error(errors.NewSemanticError(errors.ErrorInvalidReturnType, "missing return value in non-void function", st.Return.Pos).Build())
		}
		return true
	default:
		return false
	}
}

func (a *Analyzer) walkAssign(st *ast.AssignStmt, s *scope, assigned assignedSet) {
	sym := a.resolveLVal(st.Target, s, assigned)
	a.walkExpr(st.Value, s, assigned)
	if sym == nil {
		return
	}
	if sym.Kind == SymbolConst {
		a.error(errors.InvalidAssignment("cannot assign to '"+sym.Source+"': it is declared const", st.Target.Pos))
		return
	}
	if len(st.Target.Indices) == 0 {
		if _, isArray := sym.Type.(ArrayType); isArray {
			a.error(errors.InvalidAssignment("cannot assign directly to an array; assign to an indexed element", st.Target.Pos))
			return
		}
		assigned[sym.Name] = true
	}
}

// resolveLVal resolves an LVal's name against s, checking uninitialized
// use for a bare (non-assignment-target) read, and records the
// resolution in a.result.Ref.
func (a *Analyzer) resolveLVal(lv *ast.LVal, s *scope, assigned assignedSet) *Symbol {
	sym := s.lookup(lv.Name)
	if sym == nil {
		a.error(errors.UndefinedVariable(lv.Name, lv.Pos, nil))
		for _, idx := range lv.Indices {
			a.walkExpr(idx, s, assigned)
		}
		return nil
	}
	a.result.Ref[lv] = sym
	for _, idx := range lv.Indices {
		a.walkExpr(idx, s, assigned)
	}
	return sym
}

// walkExprLVal resolves an LVal appearing in read position (not as an
// assignment target), additionally checking for uninitialized use.
func (a *Analyzer) walkExprLVal(lv *ast.LVal, s *scope, assigned assignedSet) {
	sym := a.resolveLVal(lv, s, assigned)
	if sym == nil {
		return
	}
	if sym.Kind == SymbolVariable && len(lv.Indices) == 0 && !assigned[sym.Name] {
		if _, isArray := sym.Type.(ArrayType); !isArray {
			a.error(errors.UninitializedVariable(sym.Source, lv.Pos))
		}
	}
}

func (a *Analyzer) walkExpr(e *ast.Expr, s *scope, assigned assignedSet) {
	a.walkLAnd(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkLAnd(op.Right, s, assigned)
	}
}

func (a *Analyzer) walkLAnd(e *ast.LAndExpr, s *scope, assigned assignedSet) {
	a.walkEq(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkEq(op.Right, s, assigned)
	}
}

func (a *Analyzer) walkEq(e *ast.EqExpr, s *scope, assigned assignedSet) {
	a.walkRel(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkRel(op.Right, s, assigned)
	}
}

func (a *Analyzer) walkRel(e *ast.RelExpr, s *scope, assigned assignedSet) {
	a.walkAdd(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkAdd(op.Right, s, assigned)
	}
}

func (a *Analyzer) walkAdd(e *ast.AddExpr, s *scope, assigned assignedSet) {
	a.walkMul(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkMul(op.Right, s, assigned)
	}
}

func (a *Analyzer) walkMul(e *ast.MulExpr, s *scope, assigned assignedSet) {
	a.walkUnary(e.Left, s, assigned)
	for _, op := range e.Ops {
		a.walkUnary(op.Right, s, assigned)
		if (op.Op == "/" || op.Op == "%") && isConstZero(op.Right, s) {
			opName := "division"
			if op.Op == "%" {
				opName = "modulo"
			}
			a.error(errors.DivisionByZero(opName, op.Right.NodePos()))
		}
	}
}

func isConstZero(e *ast.UnaryExpr, s *scope) bool {
	v, ok := evalUnary(e, func(name string) (int, bool) {
		sym := s.lookup(name)
		if sym == nil || sym.Kind != SymbolConst || !sym.IsConstInit {
			return 0, false
		}
		return sym.ConstValue, true
	})
	return ok && v == 0
}

func (a *Analyzer) walkUnary(e *ast.UnaryExpr, s *scope, assigned assignedSet) {
	if e.Unary != nil {
		a.walkUnary(e.Unary.Operand, s, assigned)
		return
	}
	if e.Primary.Call != nil {
		a.walkCall(e.Primary.Call, s, assigned)
		return
	}
	p := e.Primary.Primary
	switch {
	case p.Paren != nil:
		a.walkExpr(p.Paren, s, assigned)
	case p.LVal != nil:
		a.walkExprLVal(p.LVal, s, assigned)
	}
}

func (a *Analyzer) walkCall(c *ast.CallExpr, s *scope, assigned assignedSet) {
	for _, arg := range c.Args {
		a.walkExpr(arg, s, assigned)
	}
	fn, ok := a.functions[c.Func]
	if !ok {
		a.error(errors.UndefinedFunction(c.Func, c.Pos, nil))
		return
	}
	a.result.Call[c] = fn
	if len(c.Args) != len(fn.Params) {
		a.error(errors.InvalidArguments(c.Func, len(fn.Params), len(c.Args), c.Pos))
	}
}
