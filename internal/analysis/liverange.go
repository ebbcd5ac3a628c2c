// Package analysis computes the live-range information the register
// allocator needs: a linear program point per instruction and, for
// every SSA value, the closed interval of points across which it must
// hold its defined value.
//
// Grounded on spec.md §4.9 and on the numbering/"one analysis per
// function, keyed by function" shape of the Go compiler's own SSA
// backend (see cmd/compile/internal/ssa/stackalloc.go in the example
// pack): a single forward walk over a function's blocks in layout
// order, building per-value bookkeeping keyed by value identity rather
// than by name.
package analysis

import "github.com/sysy-lang/sysyc/internal/ir"

// Range is a closed program-point interval: the value is live at
// Begin, at End, and at every point between.
type Range struct {
	Begin int
	End   int
}

// Overlaps reports whether r and o share at least one program point.
func (r Range) Overlaps(o Range) bool {
	return r.Begin <= o.End && o.Begin <= r.End
}

// Contains reports whether point p falls within r.
func (r Range) Contains(p int) bool {
	return p >= r.Begin && p <= r.End
}

// Result is the immutable live-range analysis for one function: every
// instruction's program point, every value's live range, and the
// points at which caller-saved registers are clobbered by a call or by
// a ZeroInit store (the local-array-clear memcpy). Callers must not
// mutate any of its maps or slices.
type Result struct {
	PointOf       map[ir.Instruction]int
	Ranges        map[*ir.Value]Range
	ClobberPoints []int
}

// OverlapsClobber reports whether rng spans at least one clobber
// point, meaning a value live across rng cannot survive in a
// caller-saved register without being spilled around the call.
func (res *Result) OverlapsClobber(rng Range) bool {
	for _, p := range res.ClobberPoints {
		if rng.Contains(p) {
			return true
		}
	}
	return false
}

// AnalyzeProgram runs Analyze over every defined function in prog.
func AnalyzeProgram(prog *ir.Program) map[*ir.Function]*Result {
	out := make(map[*ir.Function]*Result, len(prog.Functions))
	for _, f := range prog.Functions {
		if f.IsDecl {
			continue
		}
		out[f] = Analyze(f)
	}
	return out
}

// Analyze computes the live-range result for f.
func Analyze(f *ir.Function) *Result {
	res := &Result{
		PointOf: make(map[ir.Instruction]int),
		Ranges:  make(map[*ir.Value]Range),
	}

	blockIndex := make(map[*ir.BasicBlock]int, len(f.Blocks))
	blockStart := make(map[*ir.BasicBlock]int, len(f.Blocks))

	point := 0
	for i, bb := range f.Blocks {
		blockIndex[bb] = i
		blockStart[bb] = point
		for _, inst := range bb.Insts {
			res.PointOf[inst] = point
			point++

			switch t := inst.(type) {
			case *ir.Call:
				res.ClobberPoints = append(res.ClobberPoints, res.PointOf[inst])
			case *ir.Store:
				if _, ok := t.Val.Def.(*ir.ZeroInit); ok {
					res.ClobberPoints = append(res.ClobberPoints, res.PointOf[inst])
				}
			}
		}
	}

	begin := make(map[*ir.Value]int)
	end := make(map[*ir.Value]int)

	entryStart := blockStart[f.Entry]
	for _, p := range f.Params {
		if p.Value != nil {
			begin[p.Value] = entryStart
			end[p.Value] = entryStart
		}
	}

	for _, bb := range f.Blocks {
		for _, param := range bb.Params {
			preds := bb.Preds()
			def := -1
			for _, pred := range preds {
				term := pred.Terminator()
				if term == nil {
					continue
				}
				tid := res.PointOf[term]
				if def == -1 || tid < def {
					def = tid
				}
			}
			if def == -1 {
				// No predecessors yet recorded (e.g. an entry block's own
				// parameter list, which this language never populates) —
				// fall back to the block's own first point.
				def = blockStart[bb]
			}
			begin[param] = def
			end[param] = def
		}
	}

	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			if v := inst.Result(); v != nil {
				if _, ok := begin[v]; !ok {
					begin[v] = res.PointOf[inst]
					end[v] = res.PointOf[inst]
				}
			}
		}
	}

	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			pid := res.PointOf[inst]
			for _, op := range inst.Operands() {
				if op == nil {
					continue
				}
				if pid > end[op] {
					end[op] = pid
				}
			}
		}
	}

	// Loop extension: a back-edge is a Jump (never a Branch, per
	// spec.md §9's documented quirk — a conditional back-edge is not
	// extended over) whose target was already laid out, i.e. appears
	// at or before the jumping block in block order. Any value whose
	// range starts at or before the header's first point and currently ends inside
	// the loop body is stretched to the back-edge's own point, so the
	// allocator does not free its register mid-loop only to have the
	// next iteration read a clobbered one.
	for _, bb := range f.Blocks {
		jmp, ok := bb.Terminator().(*ir.Jump)
		if !ok {
			continue
		}
		target := jmp.Target
		if blockIndex[target] > blockIndex[bb] {
			continue
		}
		headerStart := blockStart[target]
		backEdgePoint := res.PointOf[jmp]
		for v, b := range begin {
			e := end[v]
			if b <= headerStart && e > headerStart && e < backEdgePoint {
				end[v] = backEdgePoint
			}
		}
	}

	for v, b := range begin {
		res.Ranges[v] = Range{Begin: b, End: end[v]}
	}
	return res
}
