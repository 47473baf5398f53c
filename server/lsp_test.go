package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/clvm/config"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	text := "(c (q . 1) fi"
	pos := protocol.Position{Line: 0, Character: 13}
	if prefix := extractPrefix(text, pos); prefix != "fi" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "fi")
	}
}

func TestExtractPrefix_AfterParen(t *testing.T) {
	text := "(="
	pos := protocol.Position{Line: 0, Character: 2}
	if prefix := extractPrefix(text, pos); prefix != "=" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "=")
	}
}

func TestExtractPrefix_EmptyLine(t *testing.T) {
	pos := protocol.Position{Line: 0, Character: 0}
	if prefix := extractPrefix("", pos); prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_LineOutOfRange(t *testing.T) {
	pos := protocol.Position{Line: 5, Character: 0}
	if prefix := extractPrefix("(q . 1)", pos); prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractWord_MultiLine(t *testing.T) {
	text := "; header\n(a (q . 2) 0x0aff)"
	pos := protocol.Position{Line: 1, Character: 13}
	if word := extractWord(text, pos); word != "0x0aff" {
		t.Errorf("extractWord = %q, want %q", word, "0x0aff")
	}
}

func TestExtractWord_BetweenParens(t *testing.T) {
	pos := protocol.Position{Line: 0, Character: 1}
	if word := extractWord("()", pos); word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnose_Clean(t *testing.T) {
	s := NewLSP(config.Default())
	if d := s.diagnose("(c (q . 1) 2)\n(f 1) ; two forms"); len(d) != 0 {
		t.Errorf("diagnostics = %+v, want none", d)
	}
}

func TestDiagnose_SyntaxError(t *testing.T) {
	s := NewLSP(config.Default())
	d := s.diagnose("(c 1\n  (q . ))")
	if len(d) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(d))
	}
	if d[0].Message != "expected expression after ." {
		t.Errorf("message = %q", d[0].Message)
	}
	if d[0].Range.Start.Line != 1 || d[0].Range.Start.Character != 7 {
		t.Errorf("range start = %+v, want line 1 char 7", d[0].Range.Start)
	}
	if *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *d[0].Severity)
	}
}

func TestDiagnose_UnknownSymbol(t *testing.T) {
	text := "(cons 1 2)"

	d := NewLSP(config.Default()).diagnose(text)
	if len(d) != 1 || *d[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Fatalf("diagnostics = %+v, want one warning", d)
	}
	if d[0].Range.Start.Character != 1 || d[0].Range.End.Character != 5 {
		t.Errorf("range = %+v, want chars 1-5", d[0].Range)
	}

	cfg := config.Default()
	cfg.Run.Strict = true
	d = NewLSP(cfg).diagnose(text)
	if len(d) != 1 || *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("strict diagnostics = %+v, want one error", d)
	}
}

// ---------------------------------------------------------------------------
// Hover and completion
// ---------------------------------------------------------------------------

func TestHover_Operator(t *testing.T) {
	s := NewLSP(config.Default())
	h := s.hover("=")
	if h == nil {
		t.Fatal("expected hover for =")
	}
	text := h.Contents.(protocol.MarkupContent).Value
	if !strings.Contains(text, "opcode `0x09`") || !strings.Contains(text, "117 + len(a) + len(b)") {
		t.Errorf("hover = %q", text)
	}
}

func TestHover_Literal(t *testing.T) {
	s := NewLSP(config.Default())
	h := s.hover("-129")
	if h == nil {
		t.Fatal("expected hover for a literal")
	}
	text := h.Contents.(protocol.MarkupContent).Value
	if !strings.Contains(text, "`0xff7f`") || !strings.Contains(text, "serialized `82ff7f`") {
		t.Errorf("hover = %q", text)
	}
	if s.hover("0xzz") != nil {
		t.Error("invalid literal should have no hover")
	}
}

func TestComplete(t *testing.T) {
	s := NewLSP(config.Default())
	all := s.complete("")
	if len(all) != 9 {
		t.Fatalf("completions = %d, want 9", len(all))
	}
	if all[0].Label != "q" || all[1].Label != "a" || all[8].Label != "=" {
		t.Errorf("completions not in opcode order: %s %s ... %s", all[0].Label, all[1].Label, all[8].Label)
	}
	if got := s.complete("="); len(got) != 1 || got[0].Label != "=" {
		t.Errorf("complete(=) = %+v", got)
	}
	if got := s.complete("zz"); len(got) != 0 {
		t.Errorf("complete(zz) = %+v, want none", got)
	}
}
