package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysy-lang/sysyc/internal/ir"
)

func newTestFunc(name string) *ir.Function {
	return &ir.Function{Name: name, ReturnType: ir.I32Type{}}
}

func containsInst(insts []ir.Instruction, target ir.Instruction) bool {
	for _, i := range insts {
		if i == target {
			return true
		}
	}
	return false
}

func TestRemoveUnreachableDropsOrphanBlock(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	limbo := f.NewBlock("limbo") // never targeted by anything
	f.Entry = entry

	c := ir.NewConst(f, 1)
	limbo.Append(c)
	limbo.Append(ir.NewReturn(c.Res))
	entry.Append(ir.NewReturn(nil))

	changed := ir.RemoveUnreachable(f)
	assert.True(t, changed)
	assert.Len(t, f.Blocks, 1)
	assert.Equal(t, entry, f.Blocks[0])
}

func TestRemoveUnreachableCascadesDeadPureInstruction(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	dead := ir.NewConst(f, 42) // result never used by anything
	entry.Append(dead)
	entry.Append(ir.NewReturn(nil))

	changed := ir.RemoveUnreachable(f)
	assert.True(t, changed)
	assert.False(t, containsInst(entry.Insts, dead))
}

func TestSsaBuilderPromotesScalarLocal(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	alloc := ir.NewAlloc(f, ir.I32Type{})
	entry.Append(alloc)
	c5 := ir.NewConst(f, 5)
	entry.Append(c5)
	entry.Append(ir.NewStore(c5.Res, alloc.Res))
	load := ir.NewLoad(f, alloc.Res)
	entry.Append(load)
	ret := ir.NewReturn(load.Res)
	entry.Append(ret)

	changed := ir.SsaBuilder(f)
	assert.True(t, changed)
	assert.False(t, containsInst(entry.Insts, alloc))
	assert.False(t, containsInst(entry.Insts, load))
	c, ok := ret.Val.Def.(*ir.Const)
	assert.True(t, ok)
	if ok {
		assert.Equal(t, 5, c.Val)
	}
}

// TestSsaBuilderWiresBackEdgeToComputedValueNotPhiPassthrough builds a
// minimal while-loop shape (preheader -> header -> body -> header,
// header -> end) promoting one scalar local mutated in the body, the
// same shape spec.md §8 scenario 4's accumulator loop has. The header
// is visited before its back-edge predecessor (the body) in block
// layout order, which is exactly the case the pass's incomplete-phi
// deferral exists to handle correctly.
func TestSsaBuilderWiresBackEdgeToComputedValueNotPhiPassthrough(t *testing.T) {
	f := newTestFunc("f")
	preheader := f.NewBlock("preheader")
	header := f.NewBlock("header")
	body := f.NewBlock("body")
	end := f.NewBlock("end")
	f.Entry = preheader
	f.End = end

	alloc := ir.NewAlloc(f, ir.I32Type{})
	preheader.Append(alloc)
	c0 := ir.NewConst(f, 0)
	preheader.Append(c0)
	preheader.Append(ir.NewStore(c0.Res, alloc.Res))
	preheader.Append(ir.NewJump(header, nil))

	headerLoad := ir.NewLoad(f, alloc.Res)
	header.Append(headerLoad)
	c10 := ir.NewConst(f, 10)
	header.Append(c10)
	cond := ir.NewBinary(f, ir.OpLt, headerLoad.Res, c10.Res)
	header.Append(cond)
	header.Append(ir.NewBranch(cond.Res, body, nil, end, nil))

	bodyLoad := ir.NewLoad(f, alloc.Res)
	body.Append(bodyLoad)
	c1 := ir.NewConst(f, 1)
	body.Append(c1)
	inc := ir.NewBinary(f, ir.OpAdd, bodyLoad.Res, c1.Res)
	body.Append(inc)
	body.Append(ir.NewStore(inc.Res, alloc.Res))
	backEdge := ir.NewJump(header, nil)
	body.Append(backEdge)

	endLoad := ir.NewLoad(f, alloc.Res)
	end.Append(endLoad)
	end.Append(ir.NewReturn(endLoad.Res))

	changed := ir.SsaBuilder(f)
	assert.True(t, changed)

	assert.Len(t, backEdge.Args, 1, "back edge must supply the header's loop-carried phi argument")
	assert.Equal(t, inc.Res, backEdge.Args[0], "back edge must carry the freshly computed i+1, not the phi parameter looped back to itself")
}

func TestSccpFoldsConstantBranchAndDropsDeadArm(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	trueBB := f.NewBlock("true")
	falseBB := f.NewBlock("false")
	end := f.NewBlock("end")
	f.Entry = entry
	f.End = end

	cond := ir.NewConst(f, 1)
	entry.Append(cond)
	entry.Append(ir.NewBranch(cond.Res, trueBB, nil, falseBB, nil))

	c10 := ir.NewConst(f, 10)
	trueBB.Append(c10)
	trueBB.Append(ir.NewJump(end, []*ir.Value{c10.Res}))

	c20 := ir.NewConst(f, 20)
	falseBB.Append(c20)
	falseBB.Append(ir.NewJump(end, []*ir.Value{c20.Res}))

	p := ir.NewBlockParam(f, end, ir.I32Type{})
	ret := ir.NewReturn(p)
	end.Append(ret)

	changed := ir.SCCP(f)
	assert.True(t, changed)

	for _, bb := range f.Blocks {
		assert.NotEqual(t, falseBB, bb, "dead branch arm should have been pruned")
	}
	c, ok := ret.Val.Def.(*ir.Const)
	assert.True(t, ok)
	if ok {
		assert.Equal(t, 10, c.Val)
	}
}

func TestCsePreservesAsymmetricLeftRightRule(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	x := ir.NewFuncParam(f, ir.I32Type{})

	c1 := ir.NewConst(f, 3)
	entry.Append(c1)
	b1 := ir.NewBinary(f, ir.OpSub, x, c1.Res) // x - 3
	entry.Append(b1)

	c2 := ir.NewConst(f, 3)
	entry.Append(c2)
	b2 := ir.NewBinary(f, ir.OpSub, x, c2.Res) // x - 3, same left identity, equal-value right
	entry.Append(b2)

	c3 := ir.NewConst(f, 3)
	entry.Append(c3)
	b3 := ir.NewBinary(f, ir.OpSub, c3.Res, x) // 3 - x
	entry.Append(b3)

	c4 := ir.NewConst(f, 3)
	entry.Append(c4)
	b4 := ir.NewBinary(f, ir.OpSub, c4.Res, x) // 3 - x, different left identity
	entry.Append(b4)

	entry.Append(ir.NewReturn(nil))

	changed := ir.CSE(f)
	assert.True(t, changed)

	assert.True(t, containsInst(entry.Insts, b1))
	assert.False(t, containsInst(entry.Insts, b2), "x - 3 twice should collapse (left identity, right value equal)")
	assert.True(t, containsInst(entry.Insts, b3))
	assert.True(t, containsInst(entry.Insts, b4), "3 - x twice should NOT collapse: left operands are distinct Const instances")
}

func TestRemoveTrivialArgsEliminatesLoopCounterPassthrough(t *testing.T) {
	f := newTestFunc("f")
	preheader := f.NewBlock("preheader")
	header := f.NewBlock("header")
	latch := f.NewBlock("latch")
	f.Entry = preheader

	p := ir.NewBlockParam(f, header, ir.I32Type{})

	c0 := ir.NewConst(f, 0)
	preheader.Append(c0)
	preJump := ir.NewJump(header, []*ir.Value{c0.Res})
	preheader.Append(preJump)

	consumer := ir.NewBinary(f, ir.OpAdd, p, c0.Res)
	header.Append(consumer)
	header.Append(ir.NewJump(latch, nil))

	latchJump := ir.NewJump(header, []*ir.Value{p}) // passes p straight back: trivial
	latch.Append(latchJump)

	changed := ir.RemoveTrivialArgs(f)
	assert.True(t, changed)
	assert.Empty(t, header.Params)
	assert.Equal(t, c0.Res, consumer.Left)
	assert.Empty(t, preJump.Args)
	assert.Empty(t, latchJump.Args)
}

func TestRemoveEmptyBBCoalescesChainIntoEntry(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	empty := f.NewBlock("empty")
	target := f.NewBlock("target")
	f.Entry = entry
	f.End = target

	entry.Append(ir.NewJump(empty, nil))
	empty.Append(ir.NewJump(target, nil))
	ret := ir.NewReturn(nil)
	target.Append(ret)

	for ir.RemoveEmptyBB(f) {
	}

	assert.Len(t, f.Blocks, 1)
	assert.Equal(t, entry, f.Blocks[0])
	assert.Equal(t, entry, f.End)
	assert.True(t, containsInst(entry.Insts, ret))
}
