package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/ir"
	"github.com/sysy-lang/sysyc/internal/regalloc"
)

func newTestFunc(name string) *ir.Function {
	return &ir.Function{Name: name, ReturnType: ir.I32Type{}}
}

func manyValues(f *ir.Function, n int) []*ir.Value {
	vs := make([]*ir.Value, n)
	for i := range vs {
		vs[i] = f.NewValue(ir.I32Type{})
	}
	return vs
}

func TestAllocateFitsWithinRegisterFile(t *testing.T) {
	f := newTestFunc("f")
	vs := manyValues(f, 24)
	ranges := make(map[*ir.Value]analysis.Range, 24)
	for _, v := range vs {
		ranges[v] = analysis.Range{Begin: 0, End: 100}
	}
	lr := &analysis.Result{Ranges: ranges}

	res := regalloc.Allocate(f, lr)
	assert.Equal(t, 0, res.SpillBytes)
	for _, v := range vs {
		assert.True(t, res.Places[v].IsReg())
	}
	assert.Equal(t, 11, res.MaxCalleeSavedIndex, "all 12 callee-saved registers should be exhausted by 24 concurrently-live values")
}

func TestAllocateStealsRegisterFromLongerLivedValueWhenNewValueEndsSooner(t *testing.T) {
	f := newTestFunc("f")
	vs := manyValues(f, 24)
	ranges := make(map[*ir.Value]analysis.Range, 25)
	for _, v := range vs {
		ranges[v] = analysis.Range{Begin: 0, End: 100}
	}
	short := f.NewValue(ir.I32Type{})
	ranges[short] = analysis.Range{Begin: 0, End: 5}
	lr := &analysis.Result{Ranges: ranges}

	res := regalloc.Allocate(f, lr)
	assert.True(t, res.Places[short].IsReg(), "the new, shorter-lived value should steal a register")
	assert.Equal(t, 4, res.SpillBytes, "exactly one original value should have been evicted to the stack")

	spilled := 0
	for _, v := range vs {
		if !res.Places[v].IsReg() {
			spilled++
		}
	}
	assert.Equal(t, 1, spilled)
}

func TestAllocateSpillsCurrentValueWhenVictimOutlivesIt(t *testing.T) {
	f := newTestFunc("f")
	vs := manyValues(f, 24)
	ranges := make(map[*ir.Value]analysis.Range, 25)
	for _, v := range vs {
		ranges[v] = analysis.Range{Begin: 0, End: 100}
	}
	longer := f.NewValue(ir.I32Type{})
	ranges[longer] = analysis.Range{Begin: 0, End: 200}
	lr := &analysis.Result{Ranges: ranges}

	res := regalloc.Allocate(f, lr)
	assert.False(t, res.Places[longer].IsReg(), "a new value that outlives every active interval must spill itself, not steal")
	for _, v := range vs {
		assert.True(t, res.Places[v].IsReg())
	}
	assert.Equal(t, 4, res.SpillBytes)
}

func TestAllocatePrefersCallerSavedWithoutCallOverlapAndCalleeSavedAcrossCall(t *testing.T) {
	f := newTestFunc("f")
	across := f.NewValue(ir.I32Type{}) // live range [0,10] spans the clobber point at 5
	alone := f.NewValue(ir.I32Type{})  // live range [20,30], well clear of it

	lr := &analysis.Result{
		Ranges: map[*ir.Value]analysis.Range{
			across: {Begin: 0, End: 10},
			alone:  {Begin: 20, End: 30},
		},
		ClobberPoints: []int{5},
	}

	res := regalloc.Allocate(f, lr)
	assert.Contains(t, regalloc.CalleeSavedRegs, res.Places[across].Reg, "a value live across a call site should land in a callee-saved register")
	assert.Contains(t, regalloc.CallerSavedRegs, res.Places[alone].Reg, "a value never live across a call should prefer a cheap caller-saved register")
}
