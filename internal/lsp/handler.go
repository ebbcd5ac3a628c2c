// Package lsp implements a diagnostics-only Language Server Protocol
// handler for SysY: it parses and semantically analyzes a document on
// open/change and publishes the resulting errors, nothing more.
//
// Grounded on kanso/internal/lsp/handler.go's handler-struct-plus-
// mutex-guarded-document-map shape and its Initialize/TextDocumentDidOpen/
// TextDocumentDidChange/TextDocumentDidClose wiring, with the
// completion and semantic-tokens handlers dropped: spec.md names no
// IDE feature beyond surfacing diagnostics, so there is nothing for
// them to report here.
package lsp

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/sysy-lang/sysyc/grammar"
	"github.com/sysy-lang/sysyc/internal/sema"
)

// Handler implements the LSP server handlers for SysY.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewHandler creates and returns a new Handler instance.
func NewHandler() *Handler {
	return &Handler{content: make(map[string]string)}
}

// Initialize responds to the client's initialize request, advertising
// only full-document text sync — the one capability diagnostics need.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

// Initialized is called after the client completes initialization.
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("SysY LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request.
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("SysY LSP Shutdown")
	return nil
}

// TextDocumentDidOpen handles file-open notifications from the editor.
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)
	return h.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange handles file-change notifications. The server
// is configured for full-document sync, so the last content change
// carries the document's entire new text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("unexpected content change shape for %s", params.TextDocument.URI)
	}
	return h.publishDiagnostics(ctx, params.TextDocument.URI, change.Text)
}

// TextDocumentDidClose handles file-close notifications, dropping the
// document's cached content.
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}
	h.mu.Lock()
	delete(h.content, path)
	h.mu.Unlock()
	return nil
}

// publishDiagnostics re-parses and re-analyzes text and sends the
// resulting diagnostics (possibly empty, clearing any prior ones) to
// the client.
func (h *Handler) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}

	h.mu.Lock()
	h.content[path] = text
	h.mu.Unlock()

	var diagnostics []protocol.Diagnostic
	cu, err := grammar.Parse(path, text)
	if err != nil {
		diagnostics = convertParseError(err)
	} else {
		_, diags := sema.Analyze(cu)
		diagnostics = convertSemanticErrors(diags)
	}

	sendDiagnosticNotification(ctx, uri, diagnostics)
	return nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// uriToPath converts a file:// URI to a platform-local file path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
