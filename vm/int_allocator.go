package vm

import (
	"fmt"
	"math"
)

// NodePtr is the pointer type of IntAllocator. Pairs are non-negative
// indexes into the pair table; atoms are encoded as -1-index into the atom
// table.
type NodePtr int32

type atomBuf struct {
	start uint32
	end   uint32
}

type pairBuf struct {
	first NodePtr
	rest  NodePtr
}

// IntAllocator is an arena that stores every atom's bytes in one shared
// heap and every pair as two small integers. It is not safe for concurrent
// use; an evaluation should own its allocator.
type IntAllocator struct {
	u8    []byte
	atoms []atomBuf
	pairs []pairBuf

	maxPairs     int
	maxAtomBytes int
}

// IntAllocatorOption configures an IntAllocator.
type IntAllocatorOption func(*IntAllocator)

// WithMaxPairs caps the number of pairs the arena will hold.
func WithMaxPairs(n int) IntAllocatorOption {
	return func(a *IntAllocator) { a.maxPairs = n }
}

// WithMaxAtomBytes caps the total bytes of atom storage.
func WithMaxAtomBytes(n int) IntAllocatorOption {
	return func(a *IntAllocator) { a.maxAtomBytes = n }
}

// NewIntAllocator creates an arena holding the two canonical constants.
func NewIntAllocator(opts ...IntAllocatorOption) *IntAllocator {
	a := &IntAllocator{
		u8:           make([]byte, 0, 1024),
		atoms:        make([]atomBuf, 0, 256),
		pairs:        make([]pairBuf, 0, 256),
		maxPairs:     math.MaxInt32,
		maxAtomBytes: math.MaxInt32,
	}
	for _, opt := range opts {
		opt(a)
	}
	// index 0: null, index 1: one
	a.atoms = append(a.atoms, atomBuf{0, 0})
	a.u8 = append(a.u8, 1)
	a.atoms = append(a.atoms, atomBuf{0, 1})
	return a
}

func (a *IntAllocator) NewAtom(v []byte) (NodePtr, error) {
	if len(a.atoms) >= math.MaxInt32 {
		return 0, fmt.Errorf("too many atoms: %w", ErrAllocation)
	}
	if len(a.u8)+len(v) > a.maxAtomBytes {
		return 0, fmt.Errorf("atom heap limit of %d bytes reached: %w", a.maxAtomBytes, ErrAllocation)
	}
	start := uint32(len(a.u8))
	a.u8 = append(a.u8, v...)
	a.atoms = append(a.atoms, atomBuf{start, uint32(len(a.u8))})
	return NodePtr(-len(a.atoms)), nil
}

func (a *IntAllocator) NewPair(first, rest NodePtr) (NodePtr, error) {
	if len(a.pairs) >= a.maxPairs {
		return 0, fmt.Errorf("pair limit of %d reached: %w", a.maxPairs, ErrAllocation)
	}
	a.pairs = append(a.pairs, pairBuf{first, rest})
	return NodePtr(len(a.pairs) - 1), nil
}

func (a *IntAllocator) SExp(p NodePtr) SExp[NodePtr] {
	if p >= 0 {
		pair := a.pairs[p]
		return SExp[NodePtr]{Pair: true, First: pair.first, Rest: pair.rest}
	}
	return SExp[NodePtr]{}
}

func (a *IntAllocator) Buf(p NodePtr) []byte {
	if p >= 0 {
		return nil
	}
	atom := a.atoms[-p-1]
	return a.u8[atom.start:atom.end:atom.end]
}

func (a *IntAllocator) Null() NodePtr { return -1 }

func (a *IntAllocator) One() NodePtr { return -2 }

// PairCount returns the number of pairs allocated so far.
func (a *IntAllocator) PairCount() int { return len(a.pairs) }

// AtomCount returns the number of atoms allocated so far, including the
// two constants.
func (a *IntAllocator) AtomCount() int { return len(a.atoms) }
