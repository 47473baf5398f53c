package asm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/chazu/clvm/vm"
)

// SyntaxError is a parse failure at a source position.
type SyntaxError struct {
	Pos Position
	Msg string
	// Incomplete is set when the input ended inside an open list.
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// list is an open parenthesis awaiting its closing token.
type list[P comparable] struct {
	open  Position
	items []P
	tail  P
	// dot is set once '.' is read; tailSet once the tail expression is
	dot     bool
	tailSet bool
}

// Parser assembles text into a node graph.
type Parser[P comparable] struct {
	a        vm.Allocator[P]
	lexer    *Lexer
	keywords Keywords
	cur      Token

	unresolved []Token
}

// NewParser creates a parser over src. A nil keywords table uses
// DefaultKeywords.
func NewParser[P comparable](a vm.Allocator[P], src string, keywords Keywords) *Parser[P] {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	p := &Parser[P]{a: a, lexer: NewLexer(src), keywords: keywords}
	p.next()
	return p
}

// Parse assembles src, which must contain exactly one expression.
func Parse[P comparable](a vm.Allocator[P], src string, keywords Keywords) (P, error) {
	return NewParser(a, src, keywords).ParseOne()
}

// ParseStrict is Parse, except that when strict is set a symbol matching
// no keyword is a syntax error instead of assembling as its text.
func ParseStrict[P comparable](a vm.Allocator[P], src string, keywords Keywords, strict bool) (P, error) {
	p := NewParser(a, src, keywords)
	n, err := p.ParseOne()
	if err != nil || !strict {
		return n, err
	}
	if unresolved := p.Unresolved(); len(unresolved) > 0 {
		tok := unresolved[0]
		return n, p.errorf(tok.Pos, "unknown symbol %q", tok.Literal)
	}
	return n, nil
}

func (p *Parser[P]) next() {
	p.cur = p.lexer.NextToken()
}

// IsIncomplete reports whether err is a syntax error that more input
// could fix.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete
}

func (p *Parser[P]) errorf(pos Position, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ParseOne parses one expression and requires that nothing follows it.
func (p *Parser[P]) ParseOne() (P, error) {
	var zero P
	n, err := p.ParseExpr()
	if err != nil {
		return zero, err
	}
	if p.cur.Type != TokenEOF {
		return zero, p.errorf(p.cur.Pos, "unexpected %s after expression", p.cur.Type)
	}
	return n, nil
}

// Unresolved returns the symbols parsed so far that matched no keyword
// and were assembled as their own text.
func (p *Parser[P]) Unresolved() []Token {
	return p.unresolved
}

// More reports whether input remains.
func (p *Parser[P]) More() bool {
	return p.cur.Type != TokenEOF
}

// ParseExpr parses the next expression. Nesting is tracked on an explicit
// stack.
func (p *Parser[P]) ParseExpr() (P, error) {
	var zero P
	var stack []*list[P]
	for {
		tok := p.cur
		var value P
		var done bool

		switch tok.Type {
		case TokenEOF:
			if len(stack) > 0 {
				return zero, &SyntaxError{Pos: stack[len(stack)-1].open, Msg: "unclosed (", Incomplete: true}
			}
			return zero, p.errorf(tok.Pos, "unexpected end of input")
		case TokenError:
			return zero, p.errorf(tok.Pos, "%s", tok.Literal)
		case TokenLParen:
			p.next()
			stack = append(stack, &list[P]{open: tok.Pos})
			continue
		case TokenDot:
			if len(stack) == 0 {
				return zero, p.errorf(tok.Pos, "unexpected .")
			}
			top := stack[len(stack)-1]
			if top.dot || len(top.items) == 0 {
				return zero, p.errorf(tok.Pos, "unexpected .")
			}
			top.dot = true
			p.next()
			continue
		case TokenRParen:
			if len(stack) == 0 {
				return zero, p.errorf(tok.Pos, "unexpected )")
			}
			top := stack[len(stack)-1]
			if top.dot && !top.tailSet {
				return zero, p.errorf(tok.Pos, "expected expression after .")
			}
			stack = stack[:len(stack)-1]
			p.next()
			n, err := p.close(top)
			if err != nil {
				return zero, err
			}
			value, done = n, true
		default:
			n, err := p.atom(tok)
			if err != nil {
				return zero, err
			}
			p.next()
			value, done = n, true
		}

		if !done {
			continue
		}
		if len(stack) == 0 {
			return value, nil
		}
		top := stack[len(stack)-1]
		switch {
		case top.tailSet:
			return zero, p.errorf(tok.Pos, "expected ) after dotted tail")
		case top.dot:
			top.tail, top.tailSet = value, true
		default:
			top.items = append(top.items, value)
		}
	}
}

func (p *Parser[P]) close(l *list[P]) (P, error) {
	tail := p.a.Null()
	if l.tailSet {
		tail = l.tail
	}
	for i := len(l.items) - 1; i >= 0; i-- {
		var err error
		tail, err = p.a.NewPair(l.items[i], tail)
		if err != nil {
			return tail, err
		}
	}
	return tail, nil
}

func (p *Parser[P]) atom(tok Token) (P, error) {
	var zero P
	var buf []byte
	switch tok.Type {
	case TokenInteger:
		n, ok := new(big.Int).SetString(tok.Literal, 10)
		if !ok {
			return zero, p.errorf(tok.Pos, "invalid integer %s", tok.Literal)
		}
		buf = vm.BytesFromNumber(n)
	case TokenHex:
		digits := tok.Literal[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return zero, p.errorf(tok.Pos, "invalid hex literal %s", tok.Literal)
		}
		buf = b
	case TokenString:
		buf = []byte(tok.Literal)
	case TokenSymbol:
		if code, ok := p.keywords[tok.Literal]; ok {
			buf = []byte{code}
		} else {
			buf = []byte(tok.Literal)
			p.unresolved = append(p.unresolved, tok)
		}
	default:
		return zero, p.errorf(tok.Pos, "unexpected %s", tok.Type)
	}
	return p.a.NewAtom(buf)
}
