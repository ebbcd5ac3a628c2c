package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/ir"
)

func newTestFunc(name string) *ir.Function {
	return &ir.Function{Name: name, ReturnType: ir.I32Type{}}
}

func TestProgramPointsAreSequentialInLayoutOrder(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	c1 := ir.NewConst(f, 1)
	entry.Append(c1)
	c2 := ir.NewConst(f, 2)
	entry.Append(c2)
	ret := ir.NewReturn(c2.Res)
	entry.Append(ret)

	res := analysis.Analyze(f)
	assert.Less(t, res.PointOf[c1], res.PointOf[c2])
	assert.Less(t, res.PointOf[c2], res.PointOf[ret])
}

func TestBlockParamDefIsMinOverPredecessorTerminators(t *testing.T) {
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

	header.Append(ir.NewJump(latch, nil))

	latchJump := ir.NewJump(header, []*ir.Value{p})
	latch.Append(latchJump)

	res := analysis.Analyze(f)
	// preJump is laid out before latchJump, so it has the smaller point id.
	assert.Equal(t, res.PointOf[preJump], res.Ranges[p].Begin)
}

func TestFunctionParamLiveFromEntryStart(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	arg := ir.NewFuncParam(f, ir.I32Type{})
	f.Params = append(f.Params, &ir.Param{Type: ir.I32Type{}, Value: arg})
	c1 := ir.NewConst(f, 1)
	entry.Append(c1)
	use := ir.NewBinary(f, ir.OpAdd, arg, c1.Res)
	entry.Append(use)
	entry.Append(ir.NewReturn(use.Res))

	res := analysis.Analyze(f)
	assert.Equal(t, res.PointOf[c1], res.Ranges[arg].Begin, "a function parameter is live from the entry block's first instruction")
	assert.Equal(t, res.PointOf[use], res.Ranges[arg].End)
}

func TestLoopBackEdgeExtendsLiveRangeOfValueUsedInsideLoop(t *testing.T) {
	f := newTestFunc("f")
	preheader := f.NewBlock("preheader")
	header := f.NewBlock("header")
	body := f.NewBlock("body")
	exit := f.NewBlock("exit")
	f.Entry = preheader

	inv := ir.NewFuncParam(f, ir.I32Type{})
	f.Params = append(f.Params, &ir.Param{Type: ir.I32Type{}, Value: inv})

	preheader.Append(ir.NewJump(header, nil))

	cond := ir.NewConst(f, 1)
	header.Append(cond)
	header.Append(ir.NewBranch(cond.Res, body, nil, exit, nil))

	use := ir.NewBinary(f, ir.OpAdd, inv, cond.Res) // body's one use of the loop-invariant value
	body.Append(use)
	unrelated := ir.NewConst(f, 99) // defined and dead after use, later in layout order
	body.Append(unrelated)
	backJump := ir.NewJump(header, nil)
	body.Append(backJump)

	exit.Append(ir.NewReturn(nil))

	res := analysis.Analyze(f)

	assert.Equal(t, res.PointOf[backJump], res.Ranges[inv].End, "a value defined before the loop and used inside it must stay live through the back-edge")

	// unrelated never crosses the loop header, so its range is untouched.
	assert.Equal(t, res.PointOf[unrelated], res.Ranges[unrelated.Res].Begin)
	assert.Equal(t, res.PointOf[unrelated], res.Ranges[unrelated.Res].End)
}

func TestClobberPointsRecordCallsAndZeroInitStores(t *testing.T) {
	f := newTestFunc("f")
	entry := f.NewBlock("entry")
	f.Entry = entry

	callee := &ir.Function{Name: "g", ReturnType: ir.UnitType{}, IsDecl: true}
	call := ir.NewCall(f, callee, nil)
	entry.Append(call)

	arr := ir.NewAlloc(f, ir.ArrayType{Elem: ir.I32Type{}, Len: 4})
	entry.Append(arr)
	zero := ir.NewZeroInit(f, ir.ArrayType{Elem: ir.I32Type{}, Len: 4})
	entry.Append(zero)
	entry.Append(ir.NewStore(zero.Res, arr.Res))

	entry.Append(ir.NewReturn(nil))

	res := analysis.Analyze(f)
	assert.Contains(t, res.ClobberPoints, res.PointOf[call])

	var storeInst ir.Instruction
	for _, inst := range entry.Insts {
		if s, ok := inst.(*ir.Store); ok {
			storeInst = s
		}
	}
	assert.Contains(t, res.ClobberPoints, res.PointOf[storeInst])
}

func TestOverlapsClobberDetectsCallInRange(t *testing.T) {
	res := &analysis.Result{ClobberPoints: []int{5}}
	assert.True(t, res.OverlapsClobber(analysis.Range{Begin: 3, End: 7}))
	assert.False(t, res.OverlapsClobber(analysis.Range{Begin: 6, End: 7}))
}
