package asm

// Peephole cleans up the pseudo-instruction stream emit.go produces,
// in place: eliding a redundant mv when its source was only staged to
// satisfy the two-scratch-register convention, folding a compare into
// the branch that immediately tests it, and replacing a power-of-two
// multiply by an immediate with a shift.
//
// Every rewrite here is local and conservative: it only fires when the
// register it would stop producing is provably dead afterward, found
// by scanning forward over the same basic block's remaining
// instructions. A Label, Jump, Call or Ret ends the scan, since this
// pass has no cross-block liveness: past one of those, only emit.go's
// scratch registers, which never carry a value from one IR
// instruction to the next, count as dead.
func Peephole(p *AsmProgram) {
	out := make([]Instr, 0, len(p.Instrs))
	in := p.Instrs
	for i := 0; i < len(in); i++ {
		if rewritten, skip := tryFuseBranch(in, i); rewritten != nil {
			out = append(out, rewritten)
			i += skip
			continue
		}
		if rewritten, skip := tryElideMove(in, i); rewritten != nil {
			out = append(out, rewritten...)
			i += skip
			continue
		}
		if rewritten := tryStrengthReduceMul(in, i); rewritten != nil {
			out = append(out, rewritten)
			i++
			continue
		}
		out = append(out, in[i])
	}
	p.Instrs = out
}

// dstOf returns the register an instruction defines, if any.
func dstOf(i Instr) (string, bool) {
	switch t := i.(type) {
	case LoadImm:
		return t.Dst, true
	case LoadAddr:
		return t.Dst, true
	case Load:
		return t.Dst, true
	case Move:
		return t.Dst, true
	case BinaryReg:
		return t.Dst, true
	case BinaryImm:
		return t.Dst, true
	case Unary:
		return t.Dst, true
	default:
		return "", false
	}
}

func withDst(i Instr, reg string) Instr {
	switch t := i.(type) {
	case LoadImm:
		t.Dst = reg
		return t
	case LoadAddr:
		t.Dst = reg
		return t
	case Load:
		t.Dst = reg
		return t
	case Move:
		t.Dst = reg
		return t
	case BinaryReg:
		t.Dst = reg
		return t
	case BinaryImm:
		t.Dst = reg
		return t
	case Unary:
		t.Dst = reg
		return t
	default:
		return i
	}
}

// usesReg reports whether i reads reg as a source operand.
func usesReg(i Instr, reg string) bool {
	switch t := i.(type) {
	case Load:
		return t.Base == reg
	case Store:
		return t.Src == reg || t.Base == reg
	case Move:
		return t.Src == reg
	case BinaryReg:
		return t.Lhs == reg || t.Rhs == reg
	case BinaryImm:
		return t.Lhs == reg
	case Unary:
		return t.Src == reg
	case Branch:
		return t.Lhs == reg || t.Rhs == reg
	}
	return false
}

// deadAfter reports whether reg is never read before the next
// redefinition of reg. At the next Label, Jump, Call or Ret it reports
// dead only for a scratch register.
func deadAfter(instrs []Instr, from int, reg string) bool {
	for j := from; j < len(instrs); j++ {
		switch instrs[j].(type) {
		case Label, Jump, Call, Ret:
			return reg == scratchA || reg == scratchB
		}
		if usesReg(instrs[j], reg) {
			return false
		}
		if d, ok := dstOf(instrs[j]); ok && d == reg {
			return true
		}
	}
	return true
}

// tryElideMove collapses `<def> rD, ...; mv rM, rD` into `<def> rM,
// ...` when rD is a scratch register that dies immediately after the
// move — the only case emit.go's staging convention can guarantee.
func tryElideMove(instrs []Instr, i int) ([]Instr, int) {
	if i+1 >= len(instrs) {
		return nil, 0
	}
	mv, ok := instrs[i+1].(Move)
	if !ok {
		return nil, 0
	}
	if mv.Src != scratchA && mv.Src != scratchB {
		return nil, 0
	}
	d, ok := dstOf(instrs[i])
	if !ok || d != mv.Src {
		return nil, 0
	}
	if !deadAfter(instrs, i+2, mv.Src) {
		return nil, 0
	}
	return []Instr{withDst(instrs[i], mv.Dst)}, 1
}

// tryFuseBranch folds instrs[i], a seqz/snez/slt, into instrs[i+1]
// when that is the branch testing its result and the result register
// is otherwise dead — consuming both and producing the fused branch.
func tryFuseBranch(instrs []Instr, i int) (Instr, int) {
	if i+1 >= len(instrs) {
		return nil, 0
	}
	br, ok := instrs[i+1].(Branch)
	if !ok || br.Rhs != "" {
		return nil, 0
	}

	if u, ok := instrs[i].(Unary); ok && u.Dst == br.Lhs && (u.Op == "seqz" || u.Op == "snez") {
		if !deadAfter(instrs, i+2, u.Dst) {
			return nil, 0
		}
		op := br.Op
		if u.Op == "seqz" {
			op = invertZeroTest(op)
		}
		return Branch{Op: op, Lhs: u.Src, Target: br.Target}, 1
	}

	if b, ok := instrs[i].(BinaryReg); ok && b.Dst == br.Lhs && b.Op == "slt" {
		if !deadAfter(instrs, i+2, b.Dst) {
			return nil, 0
		}
		switch br.Op {
		case "bnez":
			return Branch{Op: "blt", Lhs: b.Lhs, Rhs: b.Rhs, Target: br.Target}, 1
		case "beqz":
			return Branch{Op: "bge", Lhs: b.Lhs, Rhs: b.Rhs, Target: br.Target}, 1
		}
	}

	return nil, 0
}

func invertZeroTest(op string) string {
	if op == "bnez" {
		return "beqz"
	}
	return "bnez"
}

// tryStrengthReduceMul rewrites `li r, k; mul d, a, r` into a shift
// when k is a power of two and r dies with the multiply. Division and
// remainder are left alone: arithmetic shift right does not match
// div/rem's truncate-toward-zero rounding for a negative dividend.
func tryStrengthReduceMul(instrs []Instr, i int) Instr {
	if i+1 >= len(instrs) {
		return nil
	}
	li, ok := instrs[i].(LoadImm)
	if !ok {
		return nil
	}
	mul, ok := instrs[i+1].(BinaryReg)
	if !ok || mul.Op != "mul" {
		return nil
	}
	shift, isPow2 := log2(li.Imm)
	if !isPow2 {
		return nil
	}
	var lhs string
	switch li.Dst {
	case mul.Rhs:
		lhs = mul.Lhs
	case mul.Lhs:
		lhs = mul.Rhs
	default:
		return nil
	}
	if !deadAfter(instrs, i+2, li.Dst) {
		return nil
	}
	return BinaryImm{Op: "slli", Dst: mul.Dst, Lhs: lhs, Imm: shift}
}

func log2(n int) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	shift := 0
	for n > 1 {
		if n&1 != 0 {
			return 0, false
		}
		n >>= 1
		shift++
	}
	return shift, true
}
