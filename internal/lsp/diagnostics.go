package lsp

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/sysy-lang/sysyc/internal/errors"
)

// convertParseError transforms a participle parse error into a single
// LSP diagnostic, caret-spanned the same rough width
// kanso/internal/lsp/diagnostics.go gives an unlocalized scan error.
func convertParseError(err error) []protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return nil
	}
	pos := pe.Position()
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	col := uint32(0)
	if pos.Column > 0 {
		col = uint32(pos.Column - 1)
	}
	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 5},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("sysyc-parser"),
		Message:  pe.Message(),
	}}
}

// convertSemanticErrors transforms the analyzer's structured
// diagnostics (spec.md §7's semantic error kinds) into LSP
// diagnostics, warnings included.
func convertSemanticErrors(diags []errors.CompilerError) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		length := d.Length
		if length <= 0 {
			length = 1
		}
		line := uint32(0)
		if d.Position.Line > 0 {
			line = uint32(d.Position.Line - 1)
		}
		col := uint32(0)
		if d.Position.Column > 0 {
			col = uint32(d.Position.Column - 1)
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: col},
				End:   protocol.Position{Line: line, Character: col + uint32(length)},
			},
			Severity: ptrSeverity(severityFor(d.Level)),
			Source:   ptrString("sysyc-sema"),
			Message:  fmt.Sprintf("[%s] %s", d.Code, d.Message),
		})
	}
	return out
}

func severityFor(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note, errors.Help:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
