// Package ir implements the Koopa-style SSA intermediate representation:
// programs, functions, basic blocks with block parameters, and the
// closed set of instruction kinds spec.md §3 defines.
//
// Grounded on kanso/internal/ir/types.go's representation: a Value
// record separate from a concrete per-kind Instruction struct, each
// implementing a shared Instruction interface, arena-owned by the
// defining Function. Generalized from kanso's EVM/storage-oriented
// instruction set down to SysY's alloca/load/store + block-parameter
// SSA core, and extended with the `used_by` back-edge invariant that
// kanso's own Value/Use pair only partially tracks.
package ir

import "fmt"

// Type is the IR's closed type lattice: i32, unit (void), pointer, or
// array.
type Type interface {
	String() string
	isType()
}

type I32Type struct{}

func (I32Type) String() string { return "i32" }
func (I32Type) isType()        {}

type UnitType struct{}

func (UnitType) String() string { return "unit" }
func (UnitType) isType()        {}

// ArrayType is a fixed-length array of an element type, possibly itself
// an ArrayType for multi-dimensional shapes.
type ArrayType struct {
	Elem Type
	Len  int
}

func (a ArrayType) String() string { return fmt.Sprintf("[%s, %d]", a.Elem, a.Len) }
func (ArrayType) isType()          {}

// PointerType points to a value of the given pointee type.
type PointerType struct {
	Pointee Type
}

func (p PointerType) String() string { return "*" + p.Pointee.String() }
func (PointerType) isType()          {}

// SizeOf returns a type's size in bytes: 4 for a scalar or a pointer
// (RV32's word size), and length × element size for an array.
func SizeOf(t Type) int {
	switch tt := t.(type) {
	case ArrayType:
		return tt.Len * SizeOf(tt.Elem)
	case UnitType:
		return 0
	default: // I32Type, PointerType
		return 4
	}
}

// Value is an SSA value: the result of an instruction, a block
// parameter, or a function parameter. Its `used_by` set must always
// equal the set of instructions whose operand list includes it —
// maintained by every mutating helper in this package and its passes.
type Value struct {
	ID     int
	Type   Type
	Def    Instruction // producing instruction; a synthetic definition for a block/func parameter, nil for a global's address or initializer
	Name   string      // printer-facing name, e.g. "%3" or "@N"
	UsedBy map[Instruction]bool
}

func newValue(id int, typ Type) *Value {
	return &Value{ID: id, Type: typ, UsedBy: make(map[Instruction]bool)}
}

func (v *Value) addUse(inst Instruction) {
	if v == nil {
		return
	}
	v.UsedBy[inst] = true
}

func (v *Value) removeUse(inst Instruction) {
	if v == nil {
		return
	}
	delete(v.UsedBy, inst)
}

// Instruction is implemented by every concrete instruction kind.
type Instruction interface {
	ID() int
	Result() *Value // nil for void instructions (Store, Branch, Jump, Return)
	Operands() []*Value
	SetBlock(*BasicBlock)
	Block() *BasicBlock
	IsTerminator() bool
	String() string
}

// BasicBlock is a block-parameter-carrying CFG node owned by a
// Function. Its own `used_by` set records every Jump/Branch instruction
// that names it as a target, which doubles as its predecessor set.
type BasicBlock struct {
	Name       string
	Params     []*Value
	Insts      []Instruction
	Func       *Function
	UsedBy     map[Instruction]bool
	sealed     bool // SsaBuilder bookkeeping; unused outside that pass
	filled     bool
}

func NewBasicBlock(name string) *BasicBlock {
	return &BasicBlock{Name: name, UsedBy: make(map[Instruction]bool)}
}

// Preds returns the blocks terminating in a Jump/Branch that names bb
// as a target, derived from bb.UsedBy per spec.md §4.3.
func (bb *BasicBlock) Preds() []*BasicBlock {
	seen := make(map[*BasicBlock]bool)
	var out []*BasicBlock
	for inst := range bb.UsedBy {
		pred := inst.Block()
		if pred != nil && !seen[pred] {
			seen[pred] = true
			out = append(out, pred)
		}
	}
	return out
}

// Terminator returns the block's single terminating instruction, or
// nil if the block is still under construction.
func (bb *BasicBlock) Terminator() Instruction {
	if len(bb.Insts) == 0 {
		return nil
	}
	last := bb.Insts[len(bb.Insts)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Append adds inst to the end of the block's instruction list and
// records its operand uses.
func (bb *BasicBlock) Append(inst Instruction) {
	inst.SetBlock(bb)
	bb.Insts = append(bb.Insts, inst)
	for _, op := range inst.Operands() {
		op.addUse(inst)
	}
	registerTargets(inst, bb)
}

// registerTargets records bb's terminator as a use of every block it
// targets, so BasicBlock.UsedBy doubles as the predecessor edge set.
func registerTargets(inst Instruction, bb *BasicBlock) {
	switch t := inst.(type) {
	case *Jump:
		t.Target.UsedBy[inst] = true
	case *Branch:
		t.TrueTarget.UsedBy[inst] = true
		t.FalseTarget.UsedBy[inst] = true
	}
}

// RemoveInst deletes inst from its block's layout and drops its uses of
// its own operands and targets. The caller is responsible for not
// leaving dangling users of inst's Result.
func RemoveInst(bb *BasicBlock, inst Instruction) {
	for i, cur := range bb.Insts {
		if cur == inst {
			bb.Insts = append(bb.Insts[:i], bb.Insts[i+1:]...)
			break
		}
	}
	for _, op := range inst.Operands() {
		op.removeUse(inst)
	}
	switch t := inst.(type) {
	case *Jump:
		delete(t.Target.UsedBy, inst)
	case *Branch:
		delete(t.TrueTarget.UsedBy, inst)
		delete(t.FalseTarget.UsedBy, inst)
	}
}

// Param is a function parameter: a name, declared type, and the SSA
// Value standing for its argument (itself promotable by SsaBuilder the
// same way a local's Alloc is).
type Param struct {
	Name  string
	Type  Type
	Value *Value
}

// Function is a Koopa-style function: either a full definition with a
// layout of basic blocks, or a declaration-only library symbol with no
// Entry.
type Function struct {
	Name       string
	Params     []*Param
	ReturnType Type
	Blocks     []*BasicBlock
	Entry      *BasicBlock
	End        *BasicBlock
	IsDecl     bool

	nextValueID int
	nextBBIndex int
}

// NewValue allocates a fresh SSA value owned by f's arena.
func (f *Function) NewValue(typ Type) *Value {
	f.nextValueID++
	return newValue(f.nextValueID, typ)
}

// NewBlock allocates and appends a new, uniquely named basic block.
func (f *Function) NewBlock(hint string) *BasicBlock {
	bb := NewBasicBlock(fmt.Sprintf("%%%s_%d", hint, f.nextBBIndex))
	bb.Func = f
	f.nextBBIndex++
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// RemoveBlock deletes bb from the function's layout. It does not remove
// bb's instructions from the data-flow graph; callers must do so
// explicitly per spec.md §3's lifecycle rule.
func (f *Function) RemoveBlock(bb *BasicBlock) {
	for i, cur := range f.Blocks {
		if cur == bb {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}

// GlobalVar is a top-level variable: an integer or n-dimensional array,
// with a constant (possibly zero) initializer.
type GlobalVar struct {
	Name string
	Type Type
	Init *Value // all-zero array: unnamed Value with nil Def; other array: a constant value tree; scalar: a Value named by its literal
}

// Program is the whole compilation unit: global variables, function
// definitions, and declarations for the runtime library.
type Program struct {
	Globals   []*GlobalVar
	Functions []*Function
}

func (p *Program) FindFunction(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
