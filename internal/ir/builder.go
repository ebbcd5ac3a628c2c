// Builder walks a resolved AST (internal/ast, annotated by internal/sema)
// and emits a Koopa-style SSA Program, following the straightforward
// alloca/load/store construction spec.md §4.1 prescribes: every local
// gets one Alloc in the entry block, and the SsaBuilder optimizer pass
// promotes the scalar ones afterward.
//
// Grounded on kanso/internal/ir/builder.go's single-pass statement/
// expression walker shape (a Builder holding the in-progress Function
// and "current block" cursor), generalized from kanso's module/storage
// lowering to SysY's alloca-per-local + block-parameter control flow.
package ir

import (
	"fmt"

	"github.com/sysy-lang/sysyc/internal/ast"
	"github.com/sysy-lang/sysyc/internal/runtime"
	"github.com/sysy-lang/sysyc/internal/sema"
)

// Builder holds all state threaded through one compilation unit's
// lowering: the symbol resolution result, the program under
// construction, and per-function cursor state.
type Builder struct {
	sema *sema.Result
	prog *Program

	funcs      map[string]*Function // by source name
	globalAddr map[string]*Value    // unique name -> global's address value
	globalVars map[string]*GlobalVar

	// per-function state, reset by each function's build
	f         *Function
	cur       *BasicBlock
	localAddr map[string]*Value // unique name -> Alloc address
	retSlot   *Value            // nil for a void function
	loops     []loopCtx
}

type loopCtx struct {
	entry, exit *BasicBlock
}

// Build lowers a whole compilation unit into a Program.
func Build(cu *ast.CompUnit, res *sema.Result) *Program {
	b := &Builder{
		sema:       res,
		prog:       &Program{},
		funcs:      make(map[string]*Function),
		globalAddr: make(map[string]*Value),
		globalVars: make(map[string]*GlobalVar),
	}
	b.declareRuntimeLibrary()

	// Pass 1: shells for every function, so forward/backward calls both
	// resolve to the same *Function.
	for _, item := range cu.Items {
		if item.Func != nil {
			b.declareFunctionShell(item.Func)
		}
	}

	// Pass 2: globals and function bodies in file order.
	for _, item := range cu.Items {
		switch {
		case item.Decl != nil:
			b.buildGlobalDecl(item.Decl)
		case item.Func != nil:
			b.buildFunctionBody(item.Func)
		}
	}

	return b.prog
}

func (b *Builder) declareRuntimeLibrary() {
	for _, rf := range runtime.Library {
		f := &Function{Name: rf.Name, IsDecl: true, ReturnType: UnitType{}}
		if rf.ReturnsInt {
			f.ReturnType = I32Type{}
		}
		for _, p := range rf.Params {
			typ := Type(I32Type{})
			if p == runtime.ParamIntArray {
				typ = PointerType{Pointee: I32Type{}}
			}
			f.Params = append(f.Params, &Param{Type: typ})
		}
		b.funcs[rf.Name] = f
		b.prog.Functions = append(b.prog.Functions, f)
	}
	b.declareHiddenTimer(runtime.StartTimeSymbol)
	b.declareHiddenTimer(runtime.StopTimeSymbol)
}

func (b *Builder) declareHiddenTimer(name string) {
	f := &Function{Name: name, IsDecl: true, ReturnType: UnitType{}, Params: []*Param{{Type: I32Type{}}}}
	b.funcs[name] = f
	b.prog.Functions = append(b.prog.Functions, f)
}

func toIRType(t sema.Type) Type {
	switch tt := t.(type) {
	case sema.IntType:
		return I32Type{}
	case sema.ArrayType:
		return arrayTypeFromDims(tt.Dims)
	case sema.PointerType:
		return PointerType{Pointee: toIRType(tt.Elem)}
	default:
		return I32Type{}
	}
}

func arrayTypeFromDims(dims []int) Type {
	var t Type = I32Type{}
	for i := len(dims) - 1; i >= 0; i-- {
		t = ArrayType{Elem: t, Len: dims[i]}
	}
	return t
}

func (b *Builder) declareFunctionShell(fd *ast.FuncDef) {
	retType := Type(UnitType{})
	if fd.ReturnType == "int" {
		retType = I32Type{}
	}
	f := &Function{Name: fd.Name, ReturnType: retType}
	for _, p := range fd.Params {
		sym := b.sema.Decl[p]
		var typ Type
		if sym != nil {
			typ = toIRType(sym.Type)
		} else {
			typ = I32Type{}
		}
		f.Params = append(f.Params, &Param{Name: p.Name, Type: typ})
	}
	b.funcs[fd.Name] = f
	b.prog.Functions = append(b.prog.Functions, f)
}

// --- globals ---

func (b *Builder) buildGlobalDecl(d *ast.Decl) {
	switch {
	case d.Const != nil:
		for _, def := range d.Const.Defs {
			sym := b.sema.Decl[def]
			if sym == nil {
				continue
			}
			if _, isArray := sym.Type.(sema.ArrayType); !isArray {
				// Scalar consts never get storage; references are folded
				// to literal ir.Const values at each use site.
				continue
			}
			b.buildGlobalVar(sym, def.Value)
		}
	case d.Var != nil:
		for _, def := range d.Var.Defs {
			sym := b.sema.Decl[def]
			if sym == nil {
				continue
			}
			b.buildGlobalVar(sym, def.Value)
		}
	}
}

func (b *Builder) buildGlobalVar(sym *sema.Symbol, init *ast.InitVal) {
	irType := toIRType(sym.Type)

	gv := &GlobalVar{Name: sym.Name, Type: irType}
	switch arr := sym.Type.(type) {
	case sema.ArrayType:
		flatExprs := make([]*ast.Expr, product(arr.Dims))
		if init != nil {
			flattenInit(init, arr.Dims, flatExprs, 0)
		}
		allZero := true
		vals := make([]int, len(flatExprs))
		for i, e := range flatExprs {
			if e == nil {
				continue
			}
			v, ok := evalGlobalConst(e, b)
			if ok && v != 0 {
				allZero = false
			}
			vals[i] = v
		}
		if allZero {
			gv.Init = &Value{Type: irType}
		} else {
			gv.Init = buildAggregateConst(irType, arr.Dims, vals)
		}
	default: // scalar global variable
		v := 0
		if init != nil && init.Expr != nil {
			v, _ = evalGlobalConst(init.Expr, b)
		}
		gv.Init = &Value{Type: I32Type{}, Name: fmt.Sprintf("%d", v)}
	}

	b.globalVars[sym.Name] = gv
	b.prog.Globals = append(b.prog.Globals, gv)
	addr := &Value{Type: PointerType{Pointee: irType}, Name: "@" + sym.Name}
	b.globalAddr[sym.Name] = addr
}

// buildAggregateConst renders a flat int slice as a nested Aggregate
// description (represented here as plain *Value literals — this
// Program-level constant tree is consumed only by the assembly emitter
// and printer, never mutated by a pass, so it does not need full
// Instruction/used_by bookkeeping).
func buildAggregateConst(t Type, dims []int, vals []int) *Value {
	if len(dims) <= 1 {
		elems := make([]*Value, len(vals))
		for i, v := range vals {
			elems[i] = &Value{Type: I32Type{}, Name: fmt.Sprintf("%d", v)}
		}
		return &Value{Type: t, Name: "aggregate", Def: &constTreeDef{elems: elems}}
	}
	at := t.(ArrayType)
	sub := product(dims[1:])
	elems := make([]*Value, dims[0])
	for i := 0; i < dims[0]; i++ {
		elems[i] = buildAggregateConst(at.Elem, dims[1:], vals[i*sub:(i+1)*sub])
	}
	return &Value{Type: t, Name: "aggregate", Def: &constTreeDef{elems: elems}}
}

// constTreeDef is a non-instruction Def placeholder letting a
// Program-level constant tree's children be discovered via AggregateElems,
// without pretending it is a mutable, used_by-tracked instruction.
type constTreeDef struct{ elems []*Value }

func (c *constTreeDef) ID() int                { return 0 }
func (c *constTreeDef) Result() *Value         { return nil }
func (c *constTreeDef) Operands() []*Value     { return c.elems }
func (c *constTreeDef) SetBlock(*BasicBlock)   {}
func (c *constTreeDef) Block() *BasicBlock     { return nil }
func (c *constTreeDef) IsTerminator() bool     { return false }
func (c *constTreeDef) String() string         { return "aggregate" }

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

// evalGlobalConst constant-folds a global initializer expression using
// already-built global scalar consts; semantic analysis has already
// guaranteed every global initializer is a compile-time constant.
func evalGlobalConst(e *ast.Expr, b *Builder) (int, bool) {
	return sema.EvalConst(e, func(name string) (int, bool) {
		for _, sym := range b.sema.Symbols.ByUniqueName {
			if sym.Source == name && sym.Kind == sema.SymbolConst && sym.IsConstInit {
				return sym.ConstValue, true
			}
		}
		return 0, false
	})
}

// flattenInit implements spec.md §4.1's nested-initializer flattening:
// at every sub-aggregate, the write position decides which dimension it
// fills (the smallest aligned suffix of dims), and recursion handles
// deeper nesting. Missing trailing elements stay nil (meaning zero).
func flattenInit(iv *ast.InitVal, dims []int, out []*ast.Expr, base int) int {
	pos := base
	limit := base + product(dims)
	for _, elem := range iv.Elems {
		if pos >= limit {
			break
		}
		if elem.Expr != nil {
			out[pos] = elem.Expr
			pos++
			continue
		}
		// Find the smallest trailing-dimension block aligned with pos.
		k := 1
		for k < len(dims) {
			size := product(dims[len(dims)-k:])
			if (pos-base)%size == 0 {
				break
			}
			k++
		}
		subDims := dims[len(dims)-k:]
		flattenInit(elem, subDims, out, pos)
		pos += product(subDims)
	}
	return pos
}
