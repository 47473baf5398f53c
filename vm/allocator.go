package vm

// ---------------------------------------------------------------------------
// Allocator: the node construction and inspection capability
// ---------------------------------------------------------------------------

// SExp is the classification of a node. When Pair is false the node is an
// atom and its bytes are available through Allocator.Buf.
type SExp[P comparable] struct {
	Pair  bool
	First P
	Rest  P
}

// Allocator builds and inspects S-expression nodes addressed by opaque
// pointers of type P. A pointer is only meaningful to the allocator that
// issued it. Nodes are immutable once created and live as long as the
// allocator does.
//
// Every method except NewAtom is O(1). Resource exhaustion is reported by
// returning an error wrapping ErrAllocation.
type Allocator[P comparable] interface {
	NewAtom(v []byte) (P, error)
	NewPair(first, rest P) (P, error)
	SExp(p P) SExp[P]
	// Buf returns a view of an atom's bytes. The slice must not be
	// modified. Buf returns nil for pairs.
	Buf(p P) []byte
	// Null returns the empty atom.
	Null() P
	// One returns the atom 0x01, the canonical true value.
	One() P
}

// NewList builds a proper list from items.
func NewList[P comparable](a Allocator[P], items ...P) (P, error) {
	list := a.Null()
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		list, err = a.NewPair(items[i], list)
		if err != nil {
			return a.Null(), err
		}
	}
	return list, nil
}

// Bool returns One for true and Null for false.
func Bool[P comparable](a Allocator[P], b bool) P {
	if b {
		return a.One()
	}
	return a.Null()
}
