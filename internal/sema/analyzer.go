package sema

import (
	"strconv"

	"github.com/sysy-lang/sysyc/internal/ast"
	"github.com/sysy-lang/sysyc/internal/errors"
	"github.com/sysy-lang/sysyc/internal/runtime"
)

// Result is the output of Analyze: the finalized, globally-unique-named
// symbol table plus side tables resolving every AST reference against
// it, the form spec.md §6 hands to the IR builder.
type Result struct {
	Symbols *SymbolTable

	// Decl maps a declaring node (ConstDef, VarDef, or FuncParam) to the
	// Symbol it introduced.
	Decl map[ast.Node]*Symbol

	// Ref maps an LVal reference to the Symbol it resolves to.
	Ref map[*ast.LVal]*Symbol

	// Call maps a CallExpr to the function Symbol it resolves to
	// (user-defined or runtime library).
	Call map[*ast.CallExpr]*Symbol
}

// Analyzer walks a CompUnit once to register every top-level name, then
// a second time to resolve and type-check function bodies. Grounded on
// kanso/internal/semantic/symbols.go's scope-stack analyzer, generalized
// to SysY's two-pass (signatures-then-bodies) resolution order, which
// lets a function call another defined later in the same file.
type Analyzer struct {
	global    *scope
	functions map[string]*Symbol
	result    *Result
	diags     []errors.CompilerError
	nextID    int
}

// NewAnalyzer creates an analyzer with the runtime library preregistered.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{
		global:    newScope(nil),
		functions: make(map[string]*Symbol),
		result: &Result{
			Symbols: &SymbolTable{
				ByUniqueName: make(map[string]*Symbol),
				Functions:    make(map[string]*Symbol),
			},
			Decl: make(map[ast.Node]*Symbol),
			Ref:  make(map[*ast.LVal]*Symbol),
			Call: make(map[*ast.CallExpr]*Symbol),
		},
	}
	for _, f := range runtime.Library {
		sym := &Symbol{
			Name:       f.Name,
			Source:     f.Name,
			Kind:       SymbolFunction,
			ReturnsInt: f.ReturnsInt,
		}
		for _, p := range f.Params {
			if p == runtime.ParamIntArray {
				sym.Params = append(sym.Params, PointerType{Elem: IntType{}})
			} else {
				sym.Params = append(sym.Params, IntType{})
			}
		}
		a.functions[f.Name] = sym
		a.result.Symbols.Functions[f.Name] = sym
	}
	return a
}

// Analyze runs full semantic analysis over cu, returning the resolved
// Result and any diagnostics collected (errors and warnings).
func Analyze(cu *ast.CompUnit) (*Result, []errors.CompilerError) {
	a := NewAnalyzer()
	a.registerTopLevel(cu)
	a.checkMain(cu)
	for _, item := range cu.Items {
		if item.Func != nil {
			a.analyzeFunctionBody(item.Func)
		}
	}
	return a.result, a.diags
}

func (a *Analyzer) uniqueName(source string) string {
	a.nextID++
	return source + "." + strconv.Itoa(a.nextID)
}

func (a *Analyzer) error(e errors.CompilerError)   { a.diags = append(a.diags, e) }
func (a *Analyzer) warn(e errors.CompilerError)     { a.diags = append(a.diags, e) }

// globalConstLookup resolves names against file-order-visible global
// consts only, the form array dimension expressions are allowed to use.
func (a *Analyzer) globalConstLookup(name string) (int, bool) {
	sym := a.global.lookup(name)
	if sym == nil || sym.Kind != SymbolConst || !sym.IsConstInit {
		return 0, false
	}
	return sym.ConstValue, true
}

// registerTopLevel is pass 1: it walks global declarations and function
// signatures left to right, so every const used in a later dimension
// expression or array parameter shape is already resolvable, and every
// function (forward or backward) is known by the time pass 2 resolves
// calls.
func (a *Analyzer) registerTopLevel(cu *ast.CompUnit) {
	for _, item := range cu.Items {
		switch {
		case item.Decl != nil:
			a.registerGlobalDecl(item.Decl)
		case item.Func != nil:
			a.registerFunctionSignature(item.Func)
		}
	}
}

func (a *Analyzer) registerGlobalDecl(d *ast.Decl) {
	switch {
	case d.Const != nil:
		for _, def := range d.Const.Defs {
			a.registerGlobalConst(def)
		}
	case d.Var != nil:
		for _, def := range d.Var.Defs {
			a.registerGlobalVar(def)
		}
	}
}

func (a *Analyzer) registerGlobalConst(def *ast.ConstDef) {
	if existing := a.global.lookup(def.Name); existing != nil {
		a.error(errors.DuplicateDeclaration(def.Name, def.Pos))
	}
	dims := a.evalDims(def.Dims)

	sym := &Symbol{Name: a.uniqueName(def.Name), Source: def.Name, Kind: SymbolConst}
	if len(dims) == 0 {
		sym.Type = IntType{}
		if v, ok := evalConst(def.Value.Expr, a.globalConstLookup); def.Value.Expr != nil && ok {
			sym.ConstValue = v
			sym.IsConstInit = true
		} else if def.Value.Expr == nil {
			a.error(errors.NewSemanticError(errors.ErrorGenericSemantic, "const array initializer on a scalar const", def.Pos).Build())
		} else {
			a.error(errors.NewSemanticError(errors.ErrorGenericSemantic, "const initializer must be a compile-time constant expression", def.Pos).Build())
		}
	} else {
		sym.Type = ArrayType{Dims: dims}
	}

	a.global.define(def.Name, sym)
	a.result.Symbols.ByUniqueName[sym.Name] = sym
	a.result.Decl[def] = sym
}

func (a *Analyzer) registerGlobalVar(def *ast.VarDef) {
	if existing := a.global.lookup(def.Name); existing != nil {
		a.error(errors.DuplicateDeclaration(def.Name, def.Pos))
	}
	dims := a.evalDims(def.Dims)

	sym := &Symbol{Name: a.uniqueName(def.Name), Source: def.Name, Kind: SymbolVariable}
	if len(dims) == 0 {
		sym.Type = IntType{}
	} else {
		sym.Type = ArrayType{Dims: dims}
	}

	a.global.define(def.Name, sym)
	a.result.Symbols.ByUniqueName[sym.Name] = sym
	a.result.Decl[def] = sym
}

// evalDims constant-evaluates a list of array dimension expressions
// against the globals registered so far, reporting and substituting 0
// for any expression that fails to fold (SysY array dimensions, besides
// a function parameter's leading "[]", must always be compile-time
// constants).
func (a *Analyzer) evalDims(exprs []*ast.Expr) []int {
	dims := make([]int, len(exprs))
	for i, e := range exprs {
		v, ok := evalConst(e, a.globalConstLookup)
		if !ok {
			a.error(errors.NewSemanticError(errors.ErrorGenericSemantic, "array dimension must be a compile-time constant expression", e.NodePos()).Build())
			continue
		}
		dims[i] = v
	}
	return dims
}

func (a *Analyzer) registerFunctionSignature(fd *ast.FuncDef) {
	if _, exists := a.functions[fd.Name]; exists {
		a.error(errors.DuplicateDeclaration(fd.Name, fd.Pos))
	}
	params := a.paramTypes(fd)
	sym := &Symbol{
		Name:       fd.Name,
		Source:     fd.Name,
		Kind:       SymbolFunction,
		ReturnsInt: fd.ReturnType == "int",
		Params:     params,
	}
	a.functions[fd.Name] = sym
	a.result.Symbols.Functions[fd.Name] = sym
}

// paramTypes computes each parameter's Type, constant-evaluating extra
// array dimensions against the globals visible so far.
func (a *Analyzer) paramTypes(fd *ast.FuncDef) []Type {
	types := make([]Type, len(fd.Params))
	for i, p := range fd.Params {
		if !p.IsArray() {
			types[i] = IntType{}
			continue
		}
		dims := a.evalDims(p.ExtraDims)
		if len(dims) == 0 {
			types[i] = PointerType{Elem: IntType{}}
		} else {
			types[i] = PointerType{Elem: ArrayType{Dims: dims}}
		}
	}
	return types
}

func (a *Analyzer) checkMain(cu *ast.CompUnit) {
	for _, item := range cu.Items {
		if item.Func != nil && item.Func.Name == "main" {
			if item.Func.ReturnType != "int" || len(item.Func.Params) != 0 {
				a.error(errors.NewSemanticError(errors.ErrorMissingMain, "main must be declared as 'int main()'", item.Func.Pos).Build())
			}
			return
		}
	}
	a.error(errors.MissingMain(ast.Position{Line: 1, Column: 1}))
}
