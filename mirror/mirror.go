package mirror

import (
	"errors"
	"fmt"

	"github.com/chazu/clvm/vm"
)

// Mirror is a two-way cache between the nodes of one allocator and host
// values. It is bound to the allocator's lifetime and, like the allocator,
// must not be shared between goroutines.
type Mirror[P comparable] struct {
	a      vm.Allocator[P]
	host   map[P]*Value
	native map[*Value]P
}

// New creates a Mirror over a.
func New[P comparable](a vm.Allocator[P]) *Mirror[P] {
	return &Mirror[P]{
		a:      a,
		host:   make(map[P]*Value),
		native: make(map[*Value]P),
	}
}

func (m *Mirror[P]) remember(p P, v *Value) {
	m.host[p] = v
	m.native[v] = p
}

// HostFor returns the host value mirroring p.
func (m *Mirror[P]) HostFor(p P) *Value {
	type step struct {
		p    P
		done bool
	}
	stack := []step{{p: p}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := m.host[s.p]; ok {
			continue
		}
		sexp := m.a.SExp(s.p)
		if !sexp.Pair {
			m.remember(s.p, NewAtom(m.a.Buf(s.p)))
			continue
		}
		if s.done {
			m.remember(s.p, NewPair(m.host[sexp.First], m.host[sexp.Rest]))
			continue
		}
		stack = append(stack, step{p: s.p, done: true}, step{p: sexp.Rest}, step{p: sexp.First})
	}
	return m.host[p]
}

// ErrNilValue is returned when a pair has a nil Rest.
var ErrNilValue = errors.New("mirror: pair with nil rest")

// NativeFor returns the node mirroring v, allocating it if needed.
// Allocator failures wrap vm.ErrAllocation.
func (m *Mirror[P]) NativeFor(v *Value) (P, error) {
	var zero P
	if v == nil {
		return zero, ErrNilValue
	}
	type step struct {
		v    *Value
		done bool
	}
	stack := []step{{v: v}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := m.native[s.v]; ok {
			continue
		}
		if !s.v.IsPair() {
			p, err := m.a.NewAtom(s.v.Atom)
			if err != nil {
				return zero, fmt.Errorf("mirror: %w", err)
			}
			m.remember(p, s.v)
			continue
		}
		if s.v.Rest == nil {
			return zero, ErrNilValue
		}
		if s.done {
			p, err := m.a.NewPair(m.native[s.v.First], m.native[s.v.Rest])
			if err != nil {
				return zero, fmt.Errorf("mirror: %w", err)
			}
			m.remember(p, s.v)
			continue
		}
		stack = append(stack, step{v: s.v, done: true}, step{v: s.v.Rest}, step{v: s.v.First})
	}
	return m.native[v], nil
}

// Len returns the number of cached node/value pairs.
func (m *Mirror[P]) Len() int {
	return len(m.host)
}
