// Package grammar wires internal/ast's struct-tagged node types to a
// participle lexer+parser, the way the teacher's own grammar package
// tags its node types and drives participle.Build directly over them.
package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SysYLexer tokenizes SysY source text.
var SysYLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"BlockComment", `/\*[\s\S]*?\*/`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `0[xX][0-9a-fA-F]+|0[0-7]*|[1-9][0-9]*`, nil},

		{"Operator", `(\|\||&&|==|!=|<=|>=|[-+*/%<>=!])`, nil},
		{"Punctuation", `[{}\[\]();,]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
