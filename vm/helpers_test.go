package vm

import (
	"encoding/hex"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Shared test helpers for building and rendering nodes over any allocator.
// ---------------------------------------------------------------------------

type builder[P comparable] struct {
	t *testing.T
	a Allocator[P]
}

func (b builder[P]) atom(v ...byte) P {
	b.t.Helper()
	p, err := b.a.NewAtom(v)
	if err != nil {
		b.t.Fatalf("NewAtom: %v", err)
	}
	return p
}

func (b builder[P]) str(s string) P {
	return b.atom([]byte(s)...)
}

func (b builder[P]) pair(first, rest P) P {
	b.t.Helper()
	p, err := b.a.NewPair(first, rest)
	if err != nil {
		b.t.Fatalf("NewPair: %v", err)
	}
	return p
}

func (b builder[P]) list(items ...P) P {
	b.t.Helper()
	p, err := NewList(b.a, items...)
	if err != nil {
		b.t.Fatalf("NewList: %v", err)
	}
	return p
}

// quote builds (q . v)
func (b builder[P]) quote(v P) P {
	return b.pair(b.atom(QuoteOpcode), v)
}

// op builds (opcode args...)
func (b builder[P]) op(opcode byte, args ...P) P {
	return b.pair(b.atom(opcode), b.list(args...))
}

// render prints a node as "()" for nil, hex for other atoms and
// "(first . rest)" for pairs.
func render[P comparable](a Allocator[P], p P) string {
	var sb strings.Builder
	var walk func(P)
	walk = func(p P) {
		s := a.SExp(p)
		if !s.Pair {
			buf := a.Buf(p)
			if len(buf) == 0 {
				sb.WriteString("()")
				return
			}
			sb.WriteString("0x")
			sb.WriteString(hex.EncodeToString(buf))
			return
		}
		sb.WriteByte('(')
		walk(s.First)
		sb.WriteString(" . ")
		walk(s.Rest)
		sb.WriteByte(')')
	}
	walk(p)
	return sb.String()
}

func newIntAlloc() Allocator[NodePtr] { return NewIntAllocator() }

func newRefAlloc() Allocator[Ref] { return NewRefAllocator() }
