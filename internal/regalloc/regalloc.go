// Package regalloc assigns each live SSA value either a RISC-V
// register or a stack slot, by linear scan over the live ranges
// computed by internal/analysis.
//
// Grounded on spec.md §4.10 directly; there is no teacher or pack
// analogue for register allocation (kanso targets an EVM-style stack
// machine with no general-purpose registers), so the algorithm here
// follows the specification's step list verbatim rather than adapting
// an example. The result-as-a-value, per-function shape mirrors
// internal/analysis.Result and internal/ir's own arena style.
package regalloc

import (
	"sort"
	"strconv"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/ir"
)

// CalleeSavedRegs is the callee-saved register file, in allocation
// preference order.
var CalleeSavedRegs = []string{
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
}

// CallerSavedRegs is the caller-saved register file: four scratch
// temporaries plus the eight argument registers, usable once argument
// passing is done with them.
var CallerSavedRegs = []string{
	"t3", "t4", "t5", "t6",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
}

// Place is where a value lives after allocation: either a register
// name or a byte offset into the function's spill-slot area.
type Place struct {
	Reg    string // non-empty when the value was assigned a register
	Offset int    // valid when Reg == ""
}

func regPlace(name string) Place  { return Place{Reg: name} }
func memPlace(offset int) Place   { return Place{Offset: offset} }
func (p Place) IsReg() bool       { return p.Reg != "" }
func (p Place) String() string {
	if p.IsReg() {
		return p.Reg
	}
	return strconv.Itoa(p.Offset) + "(sp)"
}

// Result is the per-function allocation: a placement for every value
// with a live range, the total spill area in bytes, and the highest
// callee-saved register index actually used (the prologue only needs
// to save that many).
type Result struct {
	Places              map[*ir.Value]Place
	SpillBytes          int
	MaxCalleeSavedIndex int // -1 if no callee-saved register was used
}

type active struct {
	value *ir.Value
	rng   analysis.Range
	reg   string
}

// Allocate runs linear scan over f's live ranges, as reported by lr.
func Allocate(f *ir.Function, lr *analysis.Result) *Result {
	res := &Result{Places: make(map[*ir.Value]Place, len(lr.Ranges)), MaxCalleeSavedIndex: -1}

	type item struct {
		v   *ir.Value
		rng analysis.Range
	}
	items := make([]item, 0, len(lr.Ranges))
	for v, rng := range lr.Ranges {
		items = append(items, item{v, rng})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].rng.Begin != items[j].rng.Begin {
			return items[i].rng.Begin < items[j].rng.Begin
		}
		return items[i].v.ID < items[j].v.ID
	})

	freeCallee := append([]string(nil), CalleeSavedRegs...)
	freeCaller := append([]string(nil), CallerSavedRegs...)
	var activeList []*active
	nextSpillOffset := 0

	freeReg := func(name string) {
		if calleeIndex(name) >= 0 {
			freeCallee = append(freeCallee, name)
		} else {
			freeCaller = append(freeCaller, name)
		}
	}

	popPreferred := func(preferCaller bool) (string, bool) {
		if preferCaller {
			if len(freeCaller) > 0 {
				r := freeCaller[0]
				freeCaller = freeCaller[1:]
				return r, true
			}
			if len(freeCallee) > 0 {
				r := freeCallee[0]
				freeCallee = freeCallee[1:]
				return r, true
			}
			return "", false
		}
		if len(freeCallee) > 0 {
			r := freeCallee[0]
			freeCallee = freeCallee[1:]
			return r, true
		}
		if len(freeCaller) > 0 {
			r := freeCaller[0]
			freeCaller = freeCaller[1:]
			return r, true
		}
		return "", false
	}

	spillSlot := func() int {
		off := nextSpillOffset
		nextSpillOffset += 4
		return off
	}

	removeActive := func(a *active) {
		for i, cur := range activeList {
			if cur == a {
				activeList = append(activeList[:i], activeList[i+1:]...)
				return
			}
		}
	}

	for _, it := range items {
		v, rng := it.v, it.rng

		// 1. Expire intervals that ended before this one begins.
		var expired []*active
		for _, a := range activeList {
			if a.rng.End < rng.Begin {
				expired = append(expired, a)
			}
		}
		for _, a := range expired {
			removeActive(a)
			freeReg(a.reg)
		}

		if len(freeCallee)+len(freeCaller) == 0 {
			// 2. Spill: steal from the active interval ending latest, if
			// it outlives the current value; otherwise spill the current
			// value itself.
			var victim *active
			for _, a := range activeList {
				if victim == nil || a.rng.End > victim.rng.End {
					victim = a
				}
			}
			if victim != nil && victim.rng.End > rng.End {
				stolen := victim.reg
				removeActive(victim)
				res.Places[victim.value] = memPlace(spillSlot())
				res.Places[v] = regPlace(stolen)
				na := &active{value: v, rng: rng, reg: stolen}
				activeList = append(activeList, na)
			} else {
				res.Places[v] = memPlace(spillSlot())
			}
			continue
		}

		// 3. A register is free: prefer caller-saved when the value
		// never lives across a call (cheap, no save/restore needed),
		// else prefer callee-saved (preserved across the call for free).
		preferCaller := !lr.OverlapsClobber(rng)
		reg, ok := popPreferred(preferCaller)
		if !ok {
			// Unreachable: the free-count check above guarantees a hit.
			res.Places[v] = memPlace(spillSlot())
			continue
		}
		if idx := calleeIndex(reg); idx > res.MaxCalleeSavedIndex {
			res.MaxCalleeSavedIndex = idx
		}
		res.Places[v] = regPlace(reg)
		activeList = append(activeList, &active{value: v, rng: rng, reg: reg})
	}

	res.SpillBytes = nextSpillOffset
	return res
}

// calleeIndex returns n for "sN", or -1 if name is not a callee-saved
// register name.
func calleeIndex(name string) int {
	for i, r := range CalleeSavedRegs {
		if r == name {
			return i
		}
	}
	return -1
}
