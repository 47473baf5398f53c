package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/clvm/asm"
	"github.com/chazu/clvm/config"
	"github.com/chazu/clvm/serde"
	"github.com/chazu/clvm/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "clvm-lsp"

var lspLog = commonlog.GetLogger("clvm.lsp")

// LspServer provides editor features for assembly files.
type LspServer struct {
	keywords asm.Keywords
	opcodes  map[string]byte
	strict   bool

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server using the keyword table of cfg.
func NewLSP(cfg *config.Config) *LspServer {
	s := &LspServer{
		keywords: cfg.Keywords(),
		opcodes:  cfg.Opcodes(),
		strict:   cfg.Run.Strict,
		docs:     make(map[string]string),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"("},
	}

	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.complete(extractPrefix(text, params.Position)), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(word), nil
}

// complete lists the keywords starting with prefix. An empty prefix
// lists them all.
func (s *LspServer) complete(prefix string) []protocol.CompletionItem {
	names := make([]string, 0, len(s.keywords))
	for name := range s.keywords {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return s.keywords[names[i]] < s.keywords[names[j]] })

	items := make([]protocol.CompletionItem, 0, len(names))
	for _, name := range names {
		kind := protocol.CompletionItemKindOperator
		detail := fmt.Sprintf("opcode 0x%02x", s.keywords[name])
		if info, ok := vm.LookupOperator(name); ok {
			detail += " · " + info.Doc
		}
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}
	return items
}

// hover describes a keyword or the atom a literal assembles to.
func (s *LspServer) hover(word string) *protocol.Hover {
	var b strings.Builder
	if code, ok := s.keywords[word]; ok {
		fmt.Fprintf(&b, "**%s** (opcode `0x%02x`)\n\n", word, code)
		if info, ok := vm.LookupOperator(word); ok {
			fmt.Fprintf(&b, "%s\n\n", info.Doc)
			fmt.Fprintf(&b, "Arguments: %s\n\nCost: %s", info.Arity, info.Cost)
		}
	} else {
		a := vm.NewIntAllocator()
		p, err := asm.Parse[vm.NodePtr](a, word, s.keywords)
		if err != nil || a.SExp(p).Pair {
			return nil
		}
		buf, err := serde.NodeToBytes[vm.NodePtr](a, p)
		if err != nil {
			return nil
		}
		fmt.Fprintf(&b, "atom `0x%x` (%d bytes)\n\nserialized `%x`", a.Buf(p), len(a.Buf(p)), buf)
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

// diagnose parses every expression in text and reports syntax errors and
// symbols that match no keyword.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	source := lspName
	diagnostics := []protocol.Diagnostic{}

	p := asm.NewParser[vm.NodePtr](vm.NewIntAllocator(), text, s.keywords)
	for p.More() {
		if _, err := p.ParseExpr(); err != nil {
			severity := protocol.DiagnosticSeverityError
			d := protocol.Diagnostic{Severity: &severity, Source: &source, Message: err.Error()}
			if se, ok := err.(*asm.SyntaxError); ok {
				d.Range = pointRange(se.Pos, 1)
				d.Message = se.Msg
			}
			diagnostics = append(diagnostics, d)
			break
		}
	}

	severity := protocol.DiagnosticSeverityWarning
	if s.strict {
		severity = protocol.DiagnosticSeverityError
	}
	for _, tok := range p.Unresolved() {
		sev := severity
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    pointRange(tok.Pos, len([]rune(tok.Literal))),
			Severity: &sev,
			Source:   &source,
			Message:  fmt.Sprintf("unknown symbol %q assembles as text", tok.Literal),
		})
	}
	return diagnostics
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(text)
	lspLog.Debugf("%s: %d diagnostics", uri, len(diagnostics))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// pointRange converts a 1-based source position to an LSP range of width
// characters.
func pointRange(pos asm.Position, width int) protocol.Range {
	line := protocol.UInteger(pos.Line - 1)
	col := protocol.UInteger(pos.Column - 1)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: col},
		End:   protocol.Position{Line: line, Character: col + protocol.UInteger(width)},
	}
}

// --- Text extraction helpers ---

func isWordChar(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '(', ')', ';', '"', '\'':
		return false
	}
	return true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full word under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(line[end]) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
