package errors

import (
	"fmt"
	"strings"

	"github.com/sysy-lang/sysyc/internal/ast"
)

// SemanticErrorBuilder provides a fluent interface for creating semantic
// errors with suggestions.
type SemanticErrorBuilder struct {
	err CompilerError
}

// NewSemanticError creates a new semantic error builder.
func NewSemanticError(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewSemanticWarning creates a new semantic warning builder.
func NewSemanticWarning(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

func (b *SemanticErrorBuilder) WithLength(length int) *SemanticErrorBuilder {
	b.err.Length = length
	return b
}

func (b *SemanticErrorBuilder) WithSuggestion(message string) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *SemanticErrorBuilder) WithNote(note string) *SemanticErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *SemanticErrorBuilder) WithHelp(help string) *SemanticErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *SemanticErrorBuilder) Build() CompilerError {
	return b.err
}

// UndefinedVariable creates an error for a name with no visible
// declaration, with "did you mean" suggestions drawn from names in scope.
func UndefinedVariable(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedVariable, fmt.Sprintf("undefined name '%s'", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		builder = builder.WithSuggestion(didYouMean(similarNames))
	} else {
		builder = builder.WithSuggestion("make sure the name is declared before use").
			WithNote("local variables must be declared with 'int' or 'const int' before use")
	}

	return builder.Build()
}

// UndefinedFunction creates an error for a call whose target has no
// function definition and no matching runtime library entry.
func UndefinedFunction(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedFunction, fmt.Sprintf("call to undefined function '%s'", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		builder = builder.WithSuggestion(didYouMean(similarNames))
	}

	return builder.WithHelp("functions must be defined in this file or be one of the runtime library functions (getint, putint, ...)").Build()
}

// TypeMismatch creates an error for a value used where its shape does
// not fit: a scalar used as an array, or vice versa.
func TypeMismatch(expected, actual string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorTypeMismatch, fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual), pos).
		WithNote("SysY has exactly one scalar type, int; arrays and pointers-to-array cannot be substituted for it").
		Build()
}

// InvalidOperation creates an error for a binary operator applied to
// operands whose shapes make it ill-formed (e.g. an array used directly
// in arithmetic).
func InvalidOperation(op, leftType, rightType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidBinaryOperation, fmt.Sprintf("invalid operation: %s %s %s", leftType, op, rightType), pos).
		WithSuggestion("index into the array to obtain an int before using it in an arithmetic or comparison expression").
		Build()
}

// MissingReturn creates an error for a non-void function with a path
// that falls off its end without returning a value.
func MissingReturn(functionName, returnType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingReturn, fmt.Sprintf("function '%s' declares return type '%s' but may fall through without a return", functionName, returnType), pos).
		WithSuggestion(fmt.Sprintf("add a 'return <%s expression>;' on every path", returnType)).
		WithHelp("a non-void function must return a value on every reachable path").
		Build()
}

// UnreachableCode creates a warning for statements that can never run.
func UnreachableCode(pos ast.Position) CompilerError {
	return NewSemanticWarning(ErrorUnreachableCode, "unreachable code", pos).
		WithNote("every path into this statement has already returned, broken, or continued").
		Build()
}

// DuplicateDeclaration creates an error for a name declared twice in one
// scope.
func DuplicateDeclaration(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateDeclaration, fmt.Sprintf("'%s' is already declared in this scope", name), pos).
		WithSuggestion(fmt.Sprintf("rename one of the declarations of '%s'", name)).
		WithNote("names must be unique within a block").
		Build()
}

// InvalidArguments creates an error for a call whose argument count
// does not match the callee's declared parameter count.
func InvalidArguments(functionName string, expected, actual int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidArguments,
		fmt.Sprintf("function '%s' expects %d argument(s), got %d", functionName, expected, actual), pos).
		WithHelp("check the function's parameter list for the expected argument count").
		Build()
}

// InvalidAssignment creates an error for an assignment whose target is
// not a plain or indexed local/global variable, or targets a const name.
func InvalidAssignment(message string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidAssignment, message, pos).
		WithHelp("only plain or array-indexed variable names declared with 'int' (not 'const int') can be assigned").
		Build()
}

// UninitializedVariable creates an error for a variable whose value is
// read along some path before it has been assigned.
func UninitializedVariable(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorUninitializedVariable, fmt.Sprintf("'%s' may be used before it is assigned a value", name), pos).
		WithNote("every local variable must be assigned on all paths reaching its use").
		Build()
}

// DivisionByZero creates an error for a division or modulo whose
// divisor is a compile-time constant zero.
func DivisionByZero(op string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDivisionByZero, fmt.Sprintf("%s by a constant zero", op), pos).
		Build()
}

// MissingMain creates an error for a compilation unit with no
// "int main()" function.
func MissingMain(pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingMain, "program has no 'int main()' function", pos).
		WithHelp("every SysY compilation unit must define int main()").
		Build()
}

// LoopControlOutsideLoop creates an error for break/continue with no
// enclosing while loop.
func LoopControlOutsideLoop(keyword string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorLoopControlOutsideLoop, fmt.Sprintf("'%s' outside of any loop", keyword), pos).
		Build()
}

func didYouMean(candidates []string) string {
	if len(candidates) == 1 {
		return fmt.Sprintf("did you mean '%s'?", candidates[0])
	}
	return fmt.Sprintf("did you mean one of: '%s'?", strings.Join(candidates, "', '"))
}

// findSimilarNames returns candidates within Levenshtein distance 2 of
// target, for "did you mean" suggestions.
func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 1 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// levenshteinDistance is a standard dynamic-programming edit distance,
// used only to pick "did you mean" suggestions within distance 2.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
