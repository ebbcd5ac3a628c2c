package grammar

import (
	"sync"

	"github.com/alecthomas/participle/v2"

	"github.com/sysy-lang/sysyc/internal/ast"
)

var (
	parserOnce sync.Once
	sysyParser *participle.Parser[ast.CompUnit]
	buildErr   error
)

func build() {
	sysyParser, buildErr = participle.Build[ast.CompUnit](
		participle.Lexer(SysYLexer),
		participle.Elide("Whitespace", "Comment", "BlockComment"),
		participle.UseLookahead(4),
	)
}

// Parse parses a whole SysY source file into a CompUnit.
func Parse(filename, source string) (*ast.CompUnit, error) {
	parserOnce.Do(build)
	if buildErr != nil {
		return nil, buildErr
	}
	return sysyParser.ParseString(filename, source)
}
