package sema

import (
	"strconv"

	"github.com/sysy-lang/sysyc/internal/ast"
)

// constLookup resolves a name to a known compile-time integer value.
// The analyzer supplies one backed by the current scope chain; tests
// can supply a plain map-backed one.
type constLookup func(name string) (int, bool)

// evalConst is spec.md §4.2's pure recursive constant evaluator: it
// returns a value only when every name the expression touches resolves
// to a compile-time constant, and never has side effects (in
// particular it never reports diagnostics — the caller decides whether
// a failed evaluation is actually an error, since most expressions are
// allowed to be non-constant).
// EvalConst exposes the constant evaluator to other packages (the IR
// builder folds global initializers and array-dimension expressions
// the same way semantic analysis validated them).
func EvalConst(e *ast.Expr, lookup func(string) (int, bool)) (int, bool) {
	return evalConst(e, lookup)
}

func evalConst(e *ast.Expr, lookup constLookup) (int, bool) {
	left, ok := evalLAnd(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalLAnd(op.Right, lookup)
		if !ok {
			return 0, false
		}
		left = boolToInt(intToBool(left) || intToBool(right))
	}
	return left, true
}

func evalLAnd(e *ast.LAndExpr, lookup constLookup) (int, bool) {
	left, ok := evalEq(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalEq(op.Right, lookup)
		if !ok {
			return 0, false
		}
		left = boolToInt(intToBool(left) && intToBool(right))
	}
	return left, true
}

func evalEq(e *ast.EqExpr, lookup constLookup) (int, bool) {
	left, ok := evalRel(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalRel(op.Right, lookup)
		if !ok {
			return 0, false
		}
		switch op.Op {
		case "==":
			left = boolToInt(left == right)
		case "!=":
			left = boolToInt(left != right)
		}
	}
	return left, true
}

func evalRel(e *ast.RelExpr, lookup constLookup) (int, bool) {
	left, ok := evalAdd(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalAdd(op.Right, lookup)
		if !ok {
			return 0, false
		}
		switch op.Op {
		case "<":
			left = boolToInt(left < right)
		case "<=":
			left = boolToInt(left <= right)
		case ">":
			left = boolToInt(left > right)
		case ">=":
			left = boolToInt(left >= right)
		}
	}
	return left, true
}

func evalAdd(e *ast.AddExpr, lookup constLookup) (int, bool) {
	left, ok := evalMul(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalMul(op.Right, lookup)
		if !ok {
			return 0, false
		}
		switch op.Op {
		case "+":
			left += right
		case "-":
			left -= right
		}
	}
	return left, true
}

func evalMul(e *ast.MulExpr, lookup constLookup) (int, bool) {
	left, ok := evalUnary(e.Left, lookup)
	if !ok {
		return 0, false
	}
	for _, op := range e.Ops {
		right, ok := evalUnary(op.Right, lookup)
		if !ok {
			return 0, false
		}
		switch op.Op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, false
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, false
			}
			left %= right
		}
	}
	return left, true
}

func evalUnary(e *ast.UnaryExpr, lookup constLookup) (int, bool) {
	if e.Unary != nil {
		val, ok := evalUnary(e.Unary.Operand, lookup)
		if !ok {
			return 0, false
		}
		switch e.Unary.Op {
		case "-":
			return -val, true
		case "!":
			return boolToInt(!intToBool(val)), true
		default: // "+"
			return val, true
		}
	}
	return evalCallOrPrimary(e.Primary, lookup)
}

func evalCallOrPrimary(e *ast.CallOrPrimary, lookup constLookup) (int, bool) {
	if e.Call != nil {
		// Calls are never compile-time constant.
		return 0, false
	}
	return evalPrimary(e.Primary, lookup)
}

func evalPrimary(e *ast.PrimaryExpr, lookup constLookup) (int, bool) {
	switch {
	case e.Paren != nil:
		return evalConst(e.Paren, lookup)
	case e.Number != nil:
		return parseIntLiteral(*e.Number), true
	case e.LVal != nil:
		if len(e.LVal.Indices) != 0 {
			// Indexing into a const array at a constant index is valid
			// SysY but not evaluated here: array-valued consts are
			// resolved against their flattened element list by the IR
			// builder, which already has the flattened Aggregate handy.
			return 0, false
		}
		return lookup(e.LVal.Name)
	default:
		return 0, false
	}
}

// parseIntLiteral parses a SysY integer literal, which may be decimal,
// 0-prefixed octal, or 0x-prefixed hexadecimal.
func parseIntLiteral(lit string) int {
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		// The lexer only ever produces well-formed integer literals;
		// this indicates a lexer/grammar bug, not bad user input.
		panic("sema: malformed integer literal " + lit)
	}
	return int(v)
}

func intToBool(v int) bool { return v != 0 }
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
