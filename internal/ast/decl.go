package ast

// CompUnit is a whole SysY source file: a sequence of declarations and
// function definitions in source order, following spec.md's Program
// "ordered list of global variable definitions and function
// definitions."
type CompUnit struct {
	Items []*GlobalItem `@@*`
}

// GlobalItem is a closed sum over top-level items.
type GlobalItem struct {
	Decl *Decl    `  @@`
	Func *FuncDef `| @@`
}

// Decl is either a const or a plain variable declaration; SysY shares
// one grammar shape for both, distinguished only by the leading
// "const" keyword.
type Decl struct {
	Const *ConstDecl `  @@`
	Var   *VarDecl   `| @@`
}

type ConstDecl struct {
	Pos  Position
	Defs []*ConstDef `"const" "int" @@ { "," @@ } ";"`
}

type ConstDef struct {
	Pos     Position
	Name    string   `@Ident`
	Dims    []*Expr  `{ "[" @@ "]" }`
	Value   *InitVal `"=" @@`
}

type VarDecl struct {
	Pos  Position
	Defs []*VarDef `"int" @@ { "," @@ } ";"`
}

type VarDef struct {
	Pos   Position
	Name  string   `@Ident`
	Dims  []*Expr  `{ "[" @@ "]" }`
	Value *InitVal `[ "=" @@ ]`
}

// InitVal is either a scalar expression or a brace-nested aggregate.
// Nested InitVals are flattened against the declared dimensions by the
// IR builder per spec.md §4.1: at every sub-aggregate, the write
// position decides which dimension the sub-aggregate fills.
type InitVal struct {
	Expr  *Expr      `  @@`
	Elems []*InitVal `| "{" [ @@ { "," @@ } ] "}"`
}

// FuncDef is a function definition. Declarations-only (the runtime
// library) are represented separately in internal/runtime, not parsed
// from SysY source.
type FuncDef struct {
	Pos        Position
	ReturnType string       `@("void"|"int")`
	Name       string       `@Ident "("`
	Params     []*FuncParam `[ @@ { "," @@ } ] ")"`
	Body       *Block       `@@`
}

// FuncParam is a function parameter. An array parameter's first
// dimension is always empty ("int a[]") and decays to a pointer per
// spec.md §4.1; remaining dimensions must be constant.
type FuncParam struct {
	Pos       Position
	Name      string  `"int" @Ident`
	ArrayMark string  `[ @"[" "]"`
	ExtraDims []*Expr `  { "[" @@ "]" } ]`
}

// IsArray reports whether the parameter was declared with a decayed
// array dimension ("int a[]" rather than plain "int a").
func (p *FuncParam) IsArray() bool { return p.ArrayMark != "" }

func (n *ConstDecl) NodePos() Position { return n.Pos }
func (n *ConstDef) NodePos() Position  { return n.Pos }
func (n *VarDecl) NodePos() Position   { return n.Pos }
func (n *VarDef) NodePos() Position    { return n.Pos }
func (n *FuncDef) NodePos() Position   { return n.Pos }
func (n *FuncParam) NodePos() Position { return n.Pos }
