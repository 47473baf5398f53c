package asm

import (
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

// Lexer tokenizes assembly text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.readPos = len(l.input) + 1
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)
	}

	word := l.readWord()
	switch {
	case word == ".":
		return Token{Type: TokenDot, Literal: word, Pos: pos}
	case isInteger(word):
		return Token{Type: TokenInteger, Literal: word, Pos: pos}
	case isHex(word):
		return Token{Type: TokenHex, Literal: word, Pos: pos}
	case strings.HasPrefix(word, "0x") || strings.HasPrefix(word, "0X"):
		return Token{Type: TokenError, Literal: "invalid hex literal " + word, Pos: pos}
	}
	return Token{Type: TokenSymbol, Literal: word, Pos: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ';':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		case isSpace(l.ch):
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) readWord() string {
	start := l.pos
	for !l.atEOF() && !isSpace(l.ch) && !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString reads a quoted string. Backslash escapes the quote character
// and itself; there are no other escapes.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()
	var sb strings.Builder
	for {
		if l.atEOF() {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == quote {
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			if l.ch != quote && l.ch != '\\' {
				sb.WriteRune('\\')
			}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch rune) bool {
	return ch == '(' || ch == ')' || ch == ';' || ch == '"' || ch == '\''
}

func isInteger(word string) bool {
	if word != "" && (word[0] == '-' || word[0] == '+') {
		word = word[1:]
	}
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < '0' || word[i] > '9' {
			return false
		}
	}
	return true
}

func isHex(word string) bool {
	if len(word) < 2 || word[0] != '0' || (word[1] != 'x' && word[1] != 'X') {
		return false
	}
	for i := 2; i < len(word); i++ {
		c := word[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
