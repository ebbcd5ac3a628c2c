package asm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/asm"
	"github.com/sysy-lang/sysyc/internal/ir"
	"github.com/sysy-lang/sysyc/internal/regalloc"
)

func newTestFunc(name string) *ir.Function {
	return &ir.Function{Name: name, ReturnType: ir.I32Type{}}
}

func TestEmitProgramLowersConstantReturn(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	c := ir.NewConst(f, 42)
	entry.Append(c)
	entry.Append(ir.NewReturn(c.Res))

	prog := &ir.Program{Functions: []*ir.Function{f}}
	lr := analysis.Analyze(f)
	ra := regalloc.Allocate(f, lr)

	out := asm.EmitProgram(prog, map[*ir.Function]*analysis.Result{f: lr}, map[*ir.Function]*regalloc.Result{f: ra})

	var loaded, moved, returned bool
	for i, inst := range out.Instrs {
		switch v := inst.(type) {
		case asm.LoadImm:
			if v.Imm == 42 {
				loaded = true
			}
		case asm.Move:
			if v.Dst == "a0" {
				moved = true
			}
		case asm.Ret:
			returned = true
			assert.True(t, i == len(out.Instrs)-1, "ret must be the final instruction")
		}
	}
	assert.True(t, loaded, "expected the constant 42 to be materialized")
	assert.True(t, moved, "expected the result moved into a0 for return")
	assert.True(t, returned)
}

func TestPeepholeElidesMoveFromScratchRegister(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.LoadImm{Dst: "t1", Imm: 5},
		asm.Move{Dst: "s1", Src: "t1"},
		asm.Ret{},
	}}
	asm.Peephole(prog)

	assert.Equal(t, []asm.Instr{
		asm.LoadImm{Dst: "s1", Imm: 5},
		asm.Ret{},
	}, prog.Instrs)
}

func TestPeepholeDoesNotElideMoveFromAllocatedRegister(t *testing.T) {
	orig := []asm.Instr{
		asm.LoadImm{Dst: "s2", Imm: 7},
		asm.Move{Dst: "a0", Src: "s2"},
		asm.Ret{},
	}
	prog := &asm.AsmProgram{Instrs: append([]asm.Instr(nil), orig...)}
	asm.Peephole(prog)

	assert.Equal(t, orig, prog.Instrs, "s2 may still be read later; eliding would lose its value")
}

func TestPeepholeFusesSeqzIntoBranch(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.Unary{Op: "seqz", Dst: "t2", Src: "s3"},
		asm.Branch{Op: "bnez", Lhs: "t2", Target: "L1"},
		asm.Label{Name: "L1"},
	}}
	asm.Peephole(prog)

	assert.Equal(t, []asm.Instr{
		asm.Branch{Op: "beqz", Lhs: "s3", Target: "L1"},
		asm.Label{Name: "L1"},
	}, prog.Instrs)
}

func TestPeepholeFusesSltIntoBranch(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.BinaryReg{Op: "slt", Dst: "t1", Lhs: "a0", Rhs: "a1"},
		asm.Branch{Op: "bnez", Lhs: "t1", Target: "Lx"},
		asm.Ret{},
	}}
	asm.Peephole(prog)

	assert.Equal(t, []asm.Instr{
		asm.Branch{Op: "blt", Lhs: "a0", Rhs: "a1", Target: "Lx"},
		asm.Ret{},
	}, prog.Instrs)
}

func TestPeepholeStrengthReducesPowerOfTwoMultiply(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.LoadImm{Dst: "t2", Imm: 8},
		asm.BinaryReg{Op: "mul", Dst: "t3", Lhs: "a2", Rhs: "t2"},
		asm.Ret{},
	}}
	asm.Peephole(prog)

	assert.Equal(t, []asm.Instr{
		asm.BinaryImm{Op: "slli", Dst: "t3", Lhs: "a2", Imm: 3},
		asm.Ret{},
	}, prog.Instrs)
}

func TestPeepholeLeavesNonPowerOfTwoMultiplyAlone(t *testing.T) {
	orig := []asm.Instr{
		asm.LoadImm{Dst: "t2", Imm: 6},
		asm.BinaryReg{Op: "mul", Dst: "t3", Lhs: "a2", Rhs: "t2"},
		asm.Ret{},
	}
	prog := &asm.AsmProgram{Instrs: append([]asm.Instr(nil), orig...)}
	asm.Peephole(prog)

	assert.Equal(t, orig, prog.Instrs)
}

func TestWriteExpandsOutOfRangeStoreOffset(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.Label{Name: "f"},
		asm.Store{Src: "a0", Base: "sp", Offset: 5000},
	}}
	out := asm.Write(prog)

	assert.Contains(t, out, "li t0, 5000")
	assert.Contains(t, out, "add t0, sp, t0")
	assert.Contains(t, out, "sw a0, 0(t0)")
	assert.False(t, strings.Contains(out, "sw a0, 5000(sp)"))
}

func TestWriteLeavesInRangeOffsetUnexpanded(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.Label{Name: "f"},
		asm.Store{Src: "a0", Base: "sp", Offset: 16},
	}}
	out := asm.Write(prog)

	assert.Contains(t, out, "sw a0, 16(sp)")
	assert.False(t, strings.Contains(out, "li t0"))
}

func TestWriteExpandsOutOfRangeImmediateArith(t *testing.T) {
	prog := &asm.AsmProgram{Instrs: []asm.Instr{
		asm.Label{Name: "f"},
		asm.BinaryImm{Op: "addi", Dst: "sp", Lhs: "sp", Imm: -3000},
	}}
	out := asm.Write(prog)

	assert.Contains(t, out, "li t0, -3000")
	assert.Contains(t, out, "add sp, sp, t0")
}
