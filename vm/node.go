package vm

// ---------------------------------------------------------------------------
// Node: a pointer together with the allocator that issued it
// ---------------------------------------------------------------------------

// Node is a read-only view of an S-expression. It is cheap to copy and
// only valid while its allocator is.
type Node[P comparable] struct {
	a   Allocator[P]
	Ptr P
}

// NewNode wraps p, which must have been issued by a.
func NewNode[P comparable](a Allocator[P], p P) Node[P] {
	return Node[P]{a: a, Ptr: p}
}

func (n Node[P]) with(p P) Node[P] {
	return Node[P]{a: n.a, Ptr: p}
}

// Pair returns the two components if the node is a pair.
func (n Node[P]) Pair() (Node[P], Node[P], bool) {
	s := n.a.SExp(n.Ptr)
	if !s.Pair {
		return Node[P]{}, Node[P]{}, false
	}
	return n.with(s.First), n.with(s.Rest), true
}

// Atom returns the node's bytes if it is an atom.
func (n Node[P]) Atom() ([]byte, bool) {
	if n.a.SExp(n.Ptr).Pair {
		return nil, false
	}
	return n.a.Buf(n.Ptr), true
}

// Nullp reports whether the node is the empty atom.
func (n Node[P]) Nullp() bool {
	buf, ok := n.Atom()
	return ok && len(buf) == 0
}

// First returns the first component, failing with NotACons on an atom.
func (n Node[P]) First() (Node[P], error) {
	first, _, ok := n.Pair()
	if !ok {
		return n, n.Err(KindNotACons, "first of non-cons")
	}
	return first, nil
}

// Rest returns the second component, failing with NotACons on an atom.
func (n Node[P]) Rest() (Node[P], error) {
	_, rest, ok := n.Pair()
	if !ok {
		return n, n.Err(KindNotACons, "rest of non-cons")
	}
	return rest, nil
}

// Err creates an EvalErr naming this node.
func (n Node[P]) Err(kind ErrKind, msg string) error {
	return NewEvalErr(n.Ptr, kind, msg)
}

// Iter calls fn for each element of a list, stopping at the first atom
// terminator or when fn returns false.
func (n Node[P]) Iter(fn func(Node[P]) bool) {
	cur := n
	for {
		first, rest, ok := cur.Pair()
		if !ok || !fn(first) {
			return
		}
		cur = rest
	}
}
