package ir

import (
	"fmt"
	"strings"
)

// baseInst factors the ID/Block bookkeeping shared by every concrete
// instruction kind.
type baseInst struct {
	id    int
	block *BasicBlock
}

func (b *baseInst) ID() int               { return b.id }
func (b *baseInst) Block() *BasicBlock    { return b.block }
func (b *baseInst) SetBlock(bb *BasicBlock) { b.block = bb }
func (b *baseInst) IsTerminator() bool    { return false }

var nextInstID int

func freshID() int {
	nextInstID++
	return nextInstID
}

// Const is an integer literal.
type Const struct {
	baseInst
	Val int
	Res *Value
}

func NewConst(f *Function, v int) *Const {
	c := &Const{baseInst: baseInst{id: freshID()}, Val: v}
	c.Res = f.NewValue(I32Type{})
	c.Res.Def = c
	c.Res.Name = fmt.Sprintf("%d", v)
	return c
}

func (c *Const) Result() *Value      { return c.Res }
func (c *Const) Operands() []*Value  { return nil }
func (c *Const) String() string      { return fmt.Sprintf("%s = %d", c.Res.Name, c.Val) }

// ZeroInit is an all-zero constant of the given type, used for the
// `store zeroinit, ptr` local-array clear. An all-zero global
// initializer is a bare Value instead (see GlobalVar.Init).
type ZeroInit struct {
	baseInst
	Res *Value
}

func NewZeroInit(f *Function, typ Type) *ZeroInit {
	z := &ZeroInit{baseInst: baseInst{id: freshID()}}
	z.Res = f.NewValue(typ)
	z.Res.Def = z
	return z
}

func (z *ZeroInit) Result() *Value     { return z.Res }
func (z *ZeroInit) Operands() []*Value { return nil }
func (z *ZeroInit) String() string     { return fmt.Sprintf("%s = zeroinit", z.Res.Name) }

// Aggregate is a nested constant array value. The builder does not
// construct it: a global initializer whose elements are not all zero is
// a tree of constant Values instead (see GlobalVar.Init).
type Aggregate struct {
	baseInst
	Elems []*Value
	Res   *Value
}

func NewAggregate(f *Function, typ Type, elems []*Value) *Aggregate {
	a := &Aggregate{baseInst: baseInst{id: freshID()}, Elems: elems}
	a.Res = f.NewValue(typ)
	a.Res.Def = a
	return a
}

func (a *Aggregate) Result() *Value     { return a.Res }
func (a *Aggregate) Operands() []*Value { return a.Elems }
func (a *Aggregate) String() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = e.Name
	}
	return fmt.Sprintf("%s = aggregate {%s}", a.Res.Name, strings.Join(parts, ", "))
}

// Alloc reserves a stack slot whose pointee is Pointee.
type Alloc struct {
	baseInst
	Pointee Type
	Res     *Value
}

func NewAlloc(f *Function, pointee Type) *Alloc {
	a := &Alloc{baseInst: baseInst{id: freshID()}, Pointee: pointee}
	a.Res = f.NewValue(PointerType{Pointee: pointee})
	a.Res.Def = a
	return a
}

func (a *Alloc) Result() *Value     { return a.Res }
func (a *Alloc) Operands() []*Value { return nil }
func (a *Alloc) String() string     { return fmt.Sprintf("%s = alloc %s", a.Res.Name, a.Pointee) }

// Load reads the pointee value at Addr.
type Load struct {
	baseInst
	Addr *Value
	Res  *Value
}

func NewLoad(f *Function, addr *Value) *Load {
	pt, ok := addr.Type.(PointerType)
	if !ok {
		pt = PointerType{Pointee: I32Type{}}
	}
	l := &Load{baseInst: baseInst{id: freshID()}, Addr: addr}
	l.Res = f.NewValue(pt.Pointee)
	l.Res.Def = l
	return l
}

func (l *Load) Result() *Value     { return l.Res }
func (l *Load) Operands() []*Value { return []*Value{l.Addr} }
func (l *Load) String() string     { return fmt.Sprintf("%s = load %s", l.Res.Name, l.Addr.Name) }

// Store writes Val into the pointee cell at Addr.
type Store struct {
	baseInst
	Val  *Value
	Addr *Value
}

func NewStore(val, addr *Value) *Store {
	return &Store{baseInst: baseInst{id: freshID()}, Val: val, Addr: addr}
}

func (s *Store) Result() *Value     { return nil }
func (s *Store) Operands() []*Value { return []*Value{s.Val, s.Addr} }
func (s *Store) String() string     { return fmt.Sprintf("store %s, %s", s.Val.Name, s.Addr.Name) }

// GetElemPtr computes the address of the Index-th element of the array
// pointed to by Base (array indexing; narrows by one dimension).
type GetElemPtr struct {
	baseInst
	Base  *Value
	Index *Value
	Res   *Value
}

func NewGetElemPtr(f *Function, base, index *Value) *GetElemPtr {
	g := &GetElemPtr{baseInst: baseInst{id: freshID()}, Base: base, Index: index}
	g.Res = f.NewValue(PointerType{Pointee: elemOf(base.Type)})
	g.Res.Def = g
	return g
}

func elemOf(t Type) Type {
	switch tt := t.(type) {
	case PointerType:
		if arr, ok := tt.Pointee.(ArrayType); ok {
			return arr.Elem
		}
		return tt.Pointee
	case ArrayType:
		return tt.Elem
	default:
		return I32Type{}
	}
}

func (g *GetElemPtr) Result() *Value     { return g.Res }
func (g *GetElemPtr) Operands() []*Value { return []*Value{g.Base, g.Index} }
func (g *GetElemPtr) String() string {
	return fmt.Sprintf("%s = getelemptr %s, %s", g.Res.Name, g.Base.Name, g.Index.Name)
}

// GetPtr computes Base + Index * sizeof(pointee), for pointer-typed
// (decayed array parameter) indexing. Unlike GetElemPtr it does not
// narrow a dimension.
type GetPtr struct {
	baseInst
	Base  *Value
	Index *Value
	Res   *Value
}

func NewGetPtr(f *Function, base, index *Value) *GetPtr {
	g := &GetPtr{baseInst: baseInst{id: freshID()}, Base: base, Index: index}
	pt, _ := base.Type.(PointerType)
	g.Res = f.NewValue(PointerType{Pointee: pt.Pointee})
	g.Res.Def = g
	return g
}

func (g *GetPtr) Result() *Value     { return g.Res }
func (g *GetPtr) Operands() []*Value { return []*Value{g.Base, g.Index} }
func (g *GetPtr) String() string {
	return fmt.Sprintf("%s = getptr %s, %s", g.Res.Name, g.Base.Name, g.Index.Name)
}

// BinaryOp enumerates the fixed set of binary operators spec.md §3 lists.
type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpRem BinaryOp = "rem"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpXor BinaryOp = "xor"
	OpLt  BinaryOp = "lt"
	OpGt  BinaryOp = "gt"
	OpLe  BinaryOp = "le"
	OpGe  BinaryOp = "ge"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
)

type Binary struct {
	baseInst
	Op    BinaryOp
	Left  *Value
	Right *Value
	Res   *Value
}

func NewBinary(f *Function, op BinaryOp, left, right *Value) *Binary {
	b := &Binary{baseInst: baseInst{id: freshID()}, Op: op, Left: left, Right: right}
	b.Res = f.NewValue(I32Type{})
	b.Res.Def = b
	return b
}

func (b *Binary) Result() *Value     { return b.Res }
func (b *Binary) Operands() []*Value { return []*Value{b.Left, b.Right} }
func (b *Binary) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Res.Name, b.Op, b.Left.Name, b.Right.Name)
}

// Call invokes Callee with Args; Res is nil when Callee returns void.
type Call struct {
	baseInst
	Callee *Function
	Args   []*Value
	Res    *Value
}

func NewCall(f *Function, callee *Function, args []*Value) *Call {
	c := &Call{baseInst: baseInst{id: freshID()}, Callee: callee, Args: args}
	if _, void := callee.ReturnType.(UnitType); !void {
		c.Res = f.NewValue(callee.ReturnType)
		c.Res.Def = c
	}
	return c
}

func (c *Call) Result() *Value     { return c.Res }
func (c *Call) Operands() []*Value { return c.Args }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Name
	}
	prefix := ""
	if c.Res != nil {
		prefix = c.Res.Name + " = "
	}
	return fmt.Sprintf("%scall @%s(%s)", prefix, c.Callee.Name, strings.Join(args, ", "))
}

// Branch is a two-way conditional terminator; each target carries its
// own block-argument list.
type Branch struct {
	baseInst
	Cond       *Value
	TrueTarget *BasicBlock
	TrueArgs   []*Value
	FalseTarget *BasicBlock
	FalseArgs  []*Value
}

func NewBranch(cond *Value, trueBB *BasicBlock, trueArgs []*Value, falseBB *BasicBlock, falseArgs []*Value) *Branch {
	return &Branch{baseInst: baseInst{id: freshID()}, Cond: cond, TrueTarget: trueBB, TrueArgs: trueArgs, FalseTarget: falseBB, FalseArgs: falseArgs}
}

func (br *Branch) Result() *Value  { return nil }
func (br *Branch) IsTerminator() bool { return true }
func (br *Branch) Operands() []*Value {
	ops := append([]*Value{br.Cond}, br.TrueArgs...)
	return append(ops, br.FalseArgs...)
}
func (br *Branch) String() string {
	return fmt.Sprintf("br %s, %s, %s", br.Cond.Name, br.TrueTarget.Name, br.FalseTarget.Name)
}

// Jump is an unconditional terminator carrying the successor's block
// arguments.
type Jump struct {
	baseInst
	Target *BasicBlock
	Args   []*Value
}

func NewJump(target *BasicBlock, args []*Value) *Jump {
	return &Jump{baseInst: baseInst{id: freshID()}, Target: target, Args: args}
}

func (j *Jump) Result() *Value      { return nil }
func (j *Jump) IsTerminator() bool  { return true }
func (j *Jump) Operands() []*Value  { return j.Args }
func (j *Jump) String() string      { return fmt.Sprintf("jump %s", j.Target.Name) }

// Return is the sole terminator of a function's %end block.
type Return struct {
	baseInst
	Val *Value // nil for void functions
}

func NewReturn(val *Value) *Return {
	return &Return{baseInst: baseInst{id: freshID()}, Val: val}
}

func (r *Return) Result() *Value    { return nil }
func (r *Return) IsTerminator() bool { return true }
func (r *Return) Operands() []*Value {
	if r.Val == nil {
		return nil
	}
	return []*Value{r.Val}
}
func (r *Return) String() string {
	if r.Val == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", r.Val.Name)
}

// blockArgDef is the synthetic, side-effect-free "definition" of a
// block parameter or function parameter, so every Value.Def is
// non-nil. It is never placed in a block's instruction list.
type blockArgDef struct {
	baseInst
	res *Value
}

func (b *blockArgDef) Result() *Value     { return b.res }
func (b *blockArgDef) Operands() []*Value { return nil }
func (b *blockArgDef) String() string     { return b.res.Name + " = param" }

// NewBlockParam allocates a new block parameter of type typ, appends it
// to bb's parameter list, and gives it a synthetic defining instruction.
func NewBlockParam(f *Function, bb *BasicBlock, typ Type) *Value {
	v := f.NewValue(typ)
	v.Name = fmt.Sprintf("%%p%d", v.ID)
	def := &blockArgDef{baseInst: baseInst{id: freshID(), block: bb}, res: v}
	v.Def = def
	bb.Params = append(bb.Params, v)
	return v
}

// NewFuncParam allocates a function's own parameter value with a
// synthetic defining instruction. Unlike NewBlockParam it records the
// value nowhere; the caller stores it in a Param (spec.md §4.1:
// parameters are promoted the same way locals are).
func NewFuncParam(f *Function, typ Type) *Value {
	v := f.NewValue(typ)
	v.Name = fmt.Sprintf("%%arg%d", v.ID)
	def := &blockArgDef{baseInst: baseInst{id: freshID()}, res: v}
	v.Def = def
	return v
}
