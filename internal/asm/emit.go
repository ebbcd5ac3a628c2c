package asm

import (
	"fmt"
	"strings"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/ir"
	"github.com/sysy-lang/sysyc/internal/regalloc"
)

// Two of the three always-unallocated scratch registers are reserved
// for this package's own use while lowering one IR instruction; the
// third, t0, is reserved for Write's immediate-range expansion so the
// two layers never fight over a register mid-instruction.
const (
	scratchA = "t1"
	scratchB = "t2"
)

// EmitProgram lowers every defined function in prog into one flat
// pseudo-instruction sequence, given each function's live-range
// analysis and register allocation.
func EmitProgram(prog *ir.Program, ranges map[*ir.Function]*analysis.Result, allocs map[*ir.Function]*regalloc.Result) *AsmProgram {
	out := &AsmProgram{}
	emitData(out, prog)

	out.emit(Directive{Text: ".text"})
	for _, f := range prog.Functions {
		if !f.IsDecl {
			out.emit(Directive{Text: ".globl " + f.Name})
		}
	}
	for _, f := range prog.Functions {
		if f.IsDecl {
			continue
		}
		emitFunction(out, f, ranges[f], allocs[f])
	}
	return out
}

func emitData(out *AsmProgram, prog *ir.Program) {
	if len(prog.Globals) == 0 {
		return
	}
	out.emit(Directive{Text: ".data"})
	for _, gv := range prog.Globals {
		out.emit(Label{Name: gv.Name})
		words := ir.FlattenGlobalInit(gv.Init)
		if words == nil {
			out.emit(Directive{Text: fmt.Sprintf(".zero %d", ir.SizeOf(gv.Type))})
			continue
		}
		for _, w := range words {
			out.emit(Directive{Text: fmt.Sprintf(".word %d", w)})
		}
	}
}

// frame lays out one function's stack frame, bottom (closest to sp)
// to top: outgoing call args, local array storage, spill slots,
// callee-saved register saves, and the return address.
type frame struct {
	argsBase    int
	localsBase  int
	spillBase   int
	calleeBase  int
	raOffset    int
	leaf        bool
	size        int
	calleeCount int
}

func layoutFrame(f *ir.Function, ra *regalloc.Result, locals map[*ir.Value]int, localsBytes int) frame {
	leaf := !hasCall(f)
	calleeCount := ra.MaxCalleeSavedIndex + 1
	if calleeCount < 0 {
		calleeCount = 0
	}

	argsBytes := maxOutgoingArgsBytes(f)

	fr := frame{leaf: leaf, calleeCount: calleeCount}
	fr.argsBase = 0
	fr.localsBase = argsBytes
	fr.spillBase = fr.localsBase + localsBytes
	fr.calleeBase = fr.spillBase + ra.SpillBytes
	raBytes := 0
	if !leaf {
		fr.raOffset = fr.calleeBase + calleeCount*4
		raBytes = 4
	}
	raw := fr.calleeBase + calleeCount*4 + raBytes
	fr.size = roundUp16(raw)
	return fr
}

func roundUp16(n int) int { return (n + 15) &^ 15 }

func hasCall(f *ir.Function) bool {
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			if _, ok := inst.(*ir.Call); ok {
				return true
			}
		}
	}
	return false
}

func maxOutgoingArgsBytes(f *ir.Function) int {
	max := 0
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			call, ok := inst.(*ir.Call)
			if !ok {
				continue
			}
			if n := len(call.Args) - 8; n > 0 && n*4 > max {
				max = n * 4
			}
		}
	}
	return max
}

// localAllocs finds every *ir.Alloc remaining in f's entry block. By
// the time codegen runs, SsaBuilder has already promoted every scalar
// local to a pure SSA value, so any Alloc still standing addresses an
// array that must keep its own backing storage in the frame.
func localAllocs(f *ir.Function) (map[*ir.Value]int, int) {
	offsets := make(map[*ir.Value]int)
	offset := 0
	for _, inst := range f.Entry.Insts {
		alloc, ok := inst.(*ir.Alloc)
		if !ok {
			continue
		}
		offsets[alloc.Res] = offset
		offset += ir.SizeOf(alloc.Pointee)
	}
	return offsets, offset
}

type ctx struct {
	f       *ir.Function
	lr      *analysis.Result
	ra      *regalloc.Result
	fr      frame
	locals  map[*ir.Value]int
	prog    *AsmProgram
	labels  map[*ir.BasicBlock]string
	edgeSeq int
}

func emitFunction(out *AsmProgram, f *ir.Function, lr *analysis.Result, ra *regalloc.Result) {
	locals, localsBytes := localAllocs(f)
	fr := layoutFrame(f, ra, locals, localsBytes)

	c := &ctx{f: f, lr: lr, ra: ra, fr: fr, locals: locals, prog: out, labels: make(map[*ir.BasicBlock]string)}
	for _, bb := range f.Blocks {
		c.labels[bb] = blockLabel(f, bb)
	}

	out.emit(Label{Name: f.Name})
	emitPrologue(c)
	for _, bb := range f.Blocks {
		out.emit(Label{Name: c.labels[bb]})
		for _, inst := range bb.Insts {
			lowerInst(c, inst)
		}
	}
}

func blockLabel(f *ir.Function, bb *ir.BasicBlock) string {
	return f.Name + "_" + sanitize(bb.Name)
}

func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c == '%':
			continue
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func emitPrologue(c *ctx) {
	if c.fr.size > 0 {
		c.prog.emit(BinaryImm{Op: "addi", Dst: "sp", Lhs: "sp", Imm: -c.fr.size})
	}
	if !c.fr.leaf {
		c.prog.emit(Store{Src: "ra", Base: "sp", Offset: c.fr.raOffset})
	}
	for i := 0; i < c.fr.calleeCount; i++ {
		c.prog.emit(Store{Src: regalloc.CalleeSavedRegs[i], Base: "sp", Offset: c.fr.calleeBase + i*4})
	}
}

func emitEpilogue(c *ctx) {
	for i := 0; i < c.fr.calleeCount; i++ {
		c.prog.emit(Load{Dst: regalloc.CalleeSavedRegs[i], Base: "sp", Offset: c.fr.calleeBase + i*4})
	}
	if !c.fr.leaf {
		c.prog.emit(Load{Dst: "ra", Base: "sp", Offset: c.fr.raOffset})
	}
	if c.fr.size > 0 {
		c.prog.emit(BinaryImm{Op: "addi", Dst: "sp", Lhs: "sp", Imm: c.fr.size})
	}
}

// load materializes v's value into a register, using scratch when v
// was spilled, and returns the register name holding it. A global
// variable's address is a bare, Def-less Value the builder plugs
// directly into operand lists (see ir.Builder.buildGlobalVar); it
// never passes through live-range analysis or allocation, so it is
// recognized here by name instead of by a register-allocator place.
func (c *ctx) load(v *ir.Value, scratch string) string {
	if v.Def == nil && strings.HasPrefix(v.Name, "@") {
		c.prog.emit(LoadAddr{Dst: scratch, Symbol: strings.TrimPrefix(v.Name, "@")})
		return scratch
	}
	p, ok := c.ra.Places[v]
	if !ok {
		return "zero"
	}
	if p.IsReg() {
		return p.Reg
	}
	c.prog.emit(Load{Dst: scratch, Base: "sp", Offset: c.fr.spillBase + p.Offset})
	return scratch
}

// dest returns the register lowering should compute v's result into:
// v's own register if it has one, else scratchB as a staging
// register that commit then spills.
func (c *ctx) dest(v *ir.Value) string {
	if p, ok := c.ra.Places[v]; ok && p.IsReg() {
		return p.Reg
	}
	return scratchB
}

func (c *ctx) commit(v *ir.Value) {
	p, ok := c.ra.Places[v]
	if !ok || p.IsReg() {
		return
	}
	c.prog.emit(Store{Src: scratchB, Base: "sp", Offset: c.fr.spillBase + p.Offset})
}

// writeTo copies srcReg into v's place directly, used for block
// parameter passing and call-argument/return-value placement where
// there is no freshly lowered instruction to stage a result through.
func (c *ctx) writeTo(v *ir.Value, srcReg string) {
	p, ok := c.ra.Places[v]
	if !ok {
		return
	}
	if p.IsReg() {
		if p.Reg != srcReg {
			c.prog.emit(Move{Dst: p.Reg, Src: srcReg})
		}
		return
	}
	c.prog.emit(Store{Src: srcReg, Base: "sp", Offset: c.fr.spillBase + p.Offset})
}

func lowerInst(c *ctx, inst ir.Instruction) {
	switch t := inst.(type) {
	case *ir.Const:
		dst := c.dest(t.Res)
		c.prog.emit(LoadImm{Dst: dst, Imm: t.Val})
		c.commit(t.Res)

	case *ir.Alloc:
		off := c.fr.localsBase + c.locals[t.Res]
		dst := c.dest(t.Res)
		c.prog.emit(BinaryImm{Op: "addi", Dst: dst, Lhs: "sp", Imm: off})
		c.commit(t.Res)

	case *ir.Load:
		base := c.load(t.Addr, scratchA)
		dst := c.dest(t.Res)
		c.prog.emit(Load{Dst: dst, Base: base, Offset: 0})
		c.commit(t.Res)

	case *ir.Store:
		if zi, ok := t.Val.Def.(*ir.ZeroInit); ok {
			base := c.load(t.Addr, scratchA)
			n := ir.SizeOf(zi.Res.Type) / 4
			for i := 0; i < n; i++ {
				c.prog.emit(Store{Src: "zero", Base: base, Offset: i * 4})
			}
			return
		}
		val := c.load(t.Val, scratchA)
		base := c.load(t.Addr, scratchB)
		c.prog.emit(Store{Src: val, Base: base, Offset: 0})

	case *ir.GetElemPtr:
		lowerAddrCalc(c, t.Base, t.Index, t.Res)

	case *ir.GetPtr:
		lowerAddrCalc(c, t.Base, t.Index, t.Res)

	case *ir.Binary:
		lhs := c.load(t.Left, scratchA)
		rhs := c.load(t.Right, scratchB)
		dst := c.dest(t.Res)
		emitBinaryOp(c, t.Op, dst, lhs, rhs)
		c.commit(t.Res)

	case *ir.Call:
		lowerCall(c, t)

	case *ir.Branch:
		lowerBranch(c, t)

	case *ir.Jump:
		movArgs(c, t.Args, t.Target.Params)
		c.prog.emit(Jump{Target: c.labels[t.Target]})

	case *ir.Return:
		if t.Val != nil {
			reg := c.load(t.Val, scratchA)
			if reg != "a0" {
				c.prog.emit(Move{Dst: "a0", Src: reg})
			}
		}
		emitEpilogue(c)
		c.prog.emit(Ret{})
	}
}

// lowerAddrCalc computes base + index*stride for both GetElemPtr
// (narrows a dimension) and GetPtr (flat pointer indexing): the
// stride is always the element size of the result's own pointee, so
// one routine serves both.
func lowerAddrCalc(c *ctx, base, index, res *ir.Value) {
	pt, _ := res.Type.(ir.PointerType)
	stride := ir.SizeOf(pt.Pointee)

	idxReg := c.load(index, scratchB)
	c.prog.emit(LoadImm{Dst: scratchA, Imm: stride})
	c.prog.emit(BinaryReg{Op: "mul", Dst: scratchB, Lhs: idxReg, Rhs: scratchA})

	baseReg := c.load(base, scratchA)
	dst := c.dest(res)
	c.prog.emit(BinaryReg{Op: "add", Dst: dst, Lhs: baseReg, Rhs: scratchB})
	c.commit(res)
}

func emitBinaryOp(c *ctx, op ir.BinaryOp, dst, lhs, rhs string) {
	switch op {
	case ir.OpAdd:
		c.prog.emit(BinaryReg{Op: "add", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpSub:
		c.prog.emit(BinaryReg{Op: "sub", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpMul:
		c.prog.emit(BinaryReg{Op: "mul", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpDiv:
		c.prog.emit(BinaryReg{Op: "div", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpRem:
		c.prog.emit(BinaryReg{Op: "rem", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpAnd:
		c.prog.emit(BinaryReg{Op: "and", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpOr:
		c.prog.emit(BinaryReg{Op: "or", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpXor:
		c.prog.emit(BinaryReg{Op: "xor", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpLt:
		c.prog.emit(BinaryReg{Op: "slt", Dst: dst, Lhs: lhs, Rhs: rhs})
	case ir.OpGt:
		c.prog.emit(BinaryReg{Op: "slt", Dst: dst, Lhs: rhs, Rhs: lhs})
	case ir.OpLe:
		c.prog.emit(BinaryReg{Op: "slt", Dst: dst, Lhs: rhs, Rhs: lhs})
		c.prog.emit(Unary{Op: "seqz", Dst: dst, Src: dst})
	case ir.OpGe:
		c.prog.emit(BinaryReg{Op: "slt", Dst: dst, Lhs: lhs, Rhs: rhs})
		c.prog.emit(Unary{Op: "seqz", Dst: dst, Src: dst})
	case ir.OpEq:
		c.prog.emit(BinaryReg{Op: "xor", Dst: dst, Lhs: lhs, Rhs: rhs})
		c.prog.emit(Unary{Op: "seqz", Dst: dst, Src: dst})
	case ir.OpNe:
		c.prog.emit(BinaryReg{Op: "xor", Dst: dst, Lhs: lhs, Rhs: rhs})
		c.prog.emit(Unary{Op: "snez", Dst: dst, Src: dst})
	}
}

// lowerCall stages every argument through a scratch register before
// writing it into its a-register so that loading a later argument
// never reads a register an earlier argument's move already
// overwrote.
// TODO: this does not resolve the case where an argument's own
// assigned register is itself some later argument's a-register.
func lowerCall(c *ctx, call *ir.Call) {
	for i, arg := range call.Args {
		src := c.load(arg, scratchA)
		if i < 8 {
			target := fmt.Sprintf("a%d", i)
			if target != src {
				c.prog.emit(Move{Dst: target, Src: src})
			}
		} else {
			c.prog.emit(Store{Src: src, Base: "sp", Offset: c.fr.argsBase + (i-8)*4})
		}
	}
	c.prog.emit(Call{Label: call.Callee.Name})
	if call.Res != nil {
		c.writeTo(call.Res, "a0")
	}
}

func lowerBranch(c *ctx, br *ir.Branch) {
	c.edgeSeq++
	trueEdge := fmt.Sprintf("%s_bt%d", c.f.Name, c.edgeSeq)
	falseEdge := fmt.Sprintf("%s_bf%d", c.f.Name, c.edgeSeq)

	cond := c.load(br.Cond, scratchA)
	c.prog.emit(Branch{Op: "bnez", Lhs: cond, Target: trueEdge})
	c.prog.emit(Jump{Target: falseEdge})

	c.prog.emit(Label{Name: trueEdge})
	movArgs(c, br.TrueArgs, br.TrueTarget.Params)
	c.prog.emit(Jump{Target: c.labels[br.TrueTarget]})

	c.prog.emit(Label{Name: falseEdge})
	movArgs(c, br.FalseArgs, br.FalseTarget.Params)
	c.prog.emit(Jump{Target: c.labels[br.FalseTarget]})
}

// movArgs passes one edge's block arguments into the target block's
// parameter places. Values are staged through scratchA one at a time,
// the same simplification as lowerCall's argument passing.
func movArgs(c *ctx, args []*ir.Value, params []*ir.Value) {
	for i, a := range args {
		src := c.load(a, scratchA)
		c.writeTo(params[i], src)
	}
}
