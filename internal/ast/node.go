// Package ast defines the SysY abstract syntax tree.
//
// Node types double as the participle grammar: struct tags in this
// package describe the SysY surface syntax, and parsing (package
// grammar) builds these types directly, the same way the teacher's own
// grammar package tags the types it parses into.
package ast

import "github.com/alecthomas/participle/v2/lexer"

// Position locates a node in its source file.
type Position = lexer.Position

// Node is implemented by every AST node that carries a source position.
// The accessor is named NodePos rather than Pos because every node also
// has an (auto-populated by participle) field literally named Pos.
type Node interface {
	NodePos() Position
}
