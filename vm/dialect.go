package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Operator dispatch
// ---------------------------------------------------------------------------

// OperatorHandler resolves an opcode atom and applies it to an evaluated
// argument list. maxCost is the budget remaining to the program; a handler
// returning a larger cost causes the evaluation to fail with CostExceeded.
// The op slice is only valid for the duration of the call.
type OperatorHandler[P comparable] interface {
	Op(a Allocator[P], op []byte, args P, maxCost Cost) (Reduction[P], error)
}

// HandlerFunc adapts a function to OperatorHandler.
type HandlerFunc[P comparable] func(a Allocator[P], op []byte, args P, maxCost Cost) (Reduction[P], error)

func (f HandlerFunc[P]) Op(a Allocator[P], op []byte, args P, maxCost Cost) (Reduction[P], error) {
	return f(a, op, args, maxCost)
}

// Strict returns a handler that rejects every opcode it is given.
func Strict[P comparable]() OperatorHandler[P] {
	return HandlerFunc[P](func(a Allocator[P], _ []byte, args P, _ Cost) (Reduction[P], error) {
		return Reduction[P]{}, NewNode(a, args).Err(KindUnknownOperator, "unimplemented operator")
	})
}

// Well-known opcodes.
const (
	QuoteOpcode byte = 0x01
	ApplyOpcode byte = 0x02
)

// DefaultOpcodes maps each built-in operator name to its opcode.
var DefaultOpcodes = map[string]byte{
	"i": 0x03,
	"c": 0x04,
	"f": 0x05,
	"r": 0x06,
	"l": 0x07,
	"x": 0x08,
	"=": 0x09,
}

// builtin returns the implementation of the named built-in operator.
func builtin[P comparable](name string) OpFunc[P] {
	switch name {
	case "i":
		return OpIf[P]
	case "c":
		return OpCons[P]
	case "f":
		return OpFirst[P]
	case "r":
		return OpRest[P]
	case "l":
		return OpListp[P]
	case "x":
		return OpRaise[P]
	case "=":
		return OpEq[P]
	}
	return nil
}

// Dialect dispatches single-byte opcodes through a dense table and hands
// everything else to a fallback handler. A Dialect is read-only once built
// and may be shared between concurrent evaluations.
type Dialect[P comparable] struct {
	table    [256]OpFunc[P]
	names    [256]string
	fallback OperatorHandler[P]
}

// NewDialect builds a table from operator names to opcodes. The quote and
// apply opcodes are handled by the evaluator and may not be bound. A nil
// fallback behaves like Strict.
func NewDialect[P comparable](opcodes map[string]byte, quote, apply byte, fallback OperatorHandler[P]) (*Dialect[P], error) {
	if fallback == nil {
		fallback = Strict[P]()
	}
	d := &Dialect[P]{fallback: fallback}

	names := make([]string, 0, len(opcodes))
	for name := range opcodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := builtin[P](name)
		if f == nil {
			return nil, fmt.Errorf("unknown operator %q", name)
		}
		code := opcodes[name]
		if code == quote || code == apply {
			return nil, fmt.Errorf("operator %q: opcode 0x%02x is reserved", name, code)
		}
		if d.table[code] != nil {
			return nil, fmt.Errorf("operator %q: opcode 0x%02x already bound to %q", name, code, d.names[code])
		}
		d.table[code] = f
		d.names[code] = name
	}
	return d, nil
}

// DefaultDialect returns the built-in operators at their default opcodes
// with a strict fallback.
func DefaultDialect[P comparable]() *Dialect[P] {
	d, err := NewDialect[P](DefaultOpcodes, QuoteOpcode, ApplyOpcode, nil)
	if err != nil {
		panic(fmt.Sprintf("vm: default dialect: %v", err))
	}
	return d
}

// WithFallback returns a copy of d that delegates unresolved opcodes to h.
func (d *Dialect[P]) WithFallback(h OperatorHandler[P]) *Dialect[P] {
	c := *d
	c.fallback = h
	return &c
}

// Op implements OperatorHandler.
func (d *Dialect[P]) Op(a Allocator[P], op []byte, args P, maxCost Cost) (Reduction[P], error) {
	if len(op) == 1 {
		if f := d.table[op[0]]; f != nil {
			return f(a, args, maxCost)
		}
	}
	return d.fallback.Op(a, op, args, maxCost)
}

// Name returns the operator bound to opcode, if any.
func (d *Dialect[P]) Name(opcode byte) (string, bool) {
	if d.table[opcode] == nil {
		return "", false
	}
	return d.names[opcode], true
}
