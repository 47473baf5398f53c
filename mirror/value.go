// Package mirror adapts node graphs to a host object graph of *Value.
//
// A Mirror converts lazily in either direction and remembers every node it
// has converted, keyed by identity on both sides, so shared substructure is
// marshaled once and converts back to the same pointer.
package mirror

// Value is a host-side node: an atom when First is nil, otherwise a pair.
type Value struct {
	Atom  []byte
	First *Value
	Rest  *Value
}

// NewAtom returns an atom value holding a copy of b.
func NewAtom(b []byte) *Value {
	return &Value{Atom: append([]byte{}, b...)}
}

// NewPair returns a pair value.
func NewPair(first, rest *Value) *Value {
	return &Value{First: first, Rest: rest}
}

// IsPair reports whether v is a pair.
func (v *Value) IsPair() bool {
	return v.First != nil
}
