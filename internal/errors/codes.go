package errors

// Error codes for the SysY compiler.
// These codes are used in error messages and documentation to provide
// consistent error identification across the toolchain.
//
// Error code ranges:
// E0001-E0099: Semantic analysis errors
// E0100-E0199: Parser errors
// E0600-E0699: Flow control errors
// W-prefixed codes (and E0800-E0899): Warning codes

const (
	// E0001: a name has no visible declaration in scope.
	ErrorUndefinedVariable = "E0001"

	// E0002: a call targets a name with no function declaration (and no
	// matching runtime library entry).
	ErrorUndefinedFunction = "E0002"

	// E0003: an operand's type does not fit where it is used (scalar
	// int used where an array is required, or vice versa).
	ErrorTypeMismatch = "E0003"

	// E0004: a return statement does not match the declared return type
	// (a bare `return;` in a function returning int).
	ErrorInvalidReturnType = "E0004"

	// E0008: a binary operator is applied where an operand's shape
	// makes the operation ill-formed.
	ErrorInvalidBinaryOperation = "E0008"

	// E0009: the same name is declared twice in one scope.
	ErrorDuplicateDeclaration = "E0009"

	// E0013: a call's argument count or shape does not match the callee.
	ErrorInvalidArguments = "E0013"

	// E0014: assignment to (or through) a const-declared name.
	ErrorInvalidAssignment = "E0014"

	// E0016: catch-all for semantic errors not covered by a dedicated
	// code.
	ErrorGenericSemantic = "E0016"

	// E0017: a variable's value is read before any path initializes it.
	ErrorUninitializedVariable = "E0017"

	// E0018: division or modulo by a compile-time-constant zero.
	ErrorDivisionByZero = "E0018"

	// E0022: no function body named "main" with signature "int main()".
	ErrorMissingMain = "E0022"

	// Parser errors (reserved range: E0100-E0199)
	ErrorSyntax = "E0100"

	// Flow control errors (reserved range: E0600-E0699)

	// E0600: function declares a return type but a path falls through
	// without returning a value.
	ErrorMissingReturn = "E0600"

	// E0601: code follows a return/break/continue on every path into it.
	ErrorUnreachableCode = "E0601"

	// E0602: break/continue used outside any enclosing loop.
	ErrorLoopControlOutsideLoop = "E0602"

	// Warning codes (W-prefixed; E0800-E0899 is also classed as a warning)

	// W0001: a local variable is declared but never read.
	WarningUnusedVariable = "W0001"
)

// GetErrorDescription returns a human-readable description of the error code.
func GetErrorDescription(code string) string {
	switch code {
	case ErrorUndefinedVariable:
		return "variable is used but not declared in scope"
	case ErrorUndefinedFunction:
		return "function is called but not declared or part of the runtime library"
	case ErrorTypeMismatch:
		return "expression type does not match expected type"
	case ErrorInvalidReturnType:
		return "function return value type does not match declared return type"
	case ErrorInvalidBinaryOperation:
		return "binary operation not supported for these operand shapes"
	case ErrorDuplicateDeclaration:
		return "duplicate declaration in the same scope"
	case ErrorInvalidArguments:
		return "function call has the wrong number or shape of arguments"
	case ErrorInvalidAssignment:
		return "assignment to a non-assignable target"
	case ErrorGenericSemantic:
		return "semantic analysis error"
	case ErrorUninitializedVariable:
		return "variable read before being assigned on every path"
	case ErrorDivisionByZero:
		return "division or modulo by a compile-time-constant zero"
	case ErrorMissingMain:
		return "program has no int main() function"
	case ErrorMissingReturn:
		return "function declares a return type but has no return on some path"
	case ErrorUnreachableCode:
		return "code is unreachable"
	case ErrorLoopControlOutsideLoop:
		return "break or continue used outside any loop"
	case WarningUnusedVariable:
		return "variable is declared but never used"
	default:
		return "unknown error code"
	}
}

// IsWarning returns true if code names a warning rather than an error.
func IsWarning(code string) bool {
	return (code >= "E0800" && code < "E0900") || (len(code) > 0 && code[0] == 'W')
}

// GetErrorCategory returns the category of the error based on its code.
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0001" && code < "E0100":
		return "Semantic Analysis"
	case code >= "E0100" && code < "E0200":
		return "Parser"
	case code >= "E0600" && code < "E0700":
		return "Flow Control"
	case code >= "E0800" && code < "E0900":
		return "Warning"
	case len(code) > 0 && code[0] == 'W':
		return "Warning"
	default:
		return "Unknown"
	}
}
