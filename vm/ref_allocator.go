package vm

// Ref is the pointer type of RefAllocator.
type Ref = *RefNode

// RefNode is a heap-allocated node. Atom is meaningful only when IsPair
// is false.
type RefNode struct {
	IsPair bool
	Atom   []byte
	First  *RefNode
	Rest   *RefNode
}

// RefAllocator represents nodes as a graph of Go pointers. Storage is
// reclaimed by the Go collector once the allocator and every Ref it issued
// become unreachable.
type RefAllocator struct {
	null *RefNode
	one  *RefNode
}

// NewRefAllocator creates a RefAllocator.
func NewRefAllocator() *RefAllocator {
	return &RefAllocator{
		null: &RefNode{Atom: []byte{}},
		one:  &RefNode{Atom: []byte{1}},
	}
}

func (a *RefAllocator) NewAtom(v []byte) (Ref, error) {
	buf := make([]byte, len(v))
	copy(buf, v)
	return &RefNode{Atom: buf}, nil
}

func (a *RefAllocator) NewPair(first, rest Ref) (Ref, error) {
	return &RefNode{IsPair: true, First: first, Rest: rest}, nil
}

func (a *RefAllocator) SExp(p Ref) SExp[Ref] {
	if p.IsPair {
		return SExp[Ref]{Pair: true, First: p.First, Rest: p.Rest}
	}
	return SExp[Ref]{}
}

func (a *RefAllocator) Buf(p Ref) []byte {
	if p.IsPair {
		return nil
	}
	return p.Atom
}

func (a *RefAllocator) Null() Ref { return a.null }

func (a *RefAllocator) One() Ref { return a.one }
