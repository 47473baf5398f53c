package mirror

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// CBOR encoding of host values.
//
// A value graph is flattened into a node table in post-order: each pair
// refers to earlier entries by index and the root is the last entry. Shared
// substructure is written once and nesting depth never reaches the CBOR
// decoder's limits.
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("mirror: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Graph is the wire form of a value graph.
type Graph struct {
	Nodes []GraphNode `cbor:"1,keyasint"`
}

// GraphNode is an atom when First is negative, otherwise a pair of earlier
// node indexes.
type GraphNode struct {
	_     struct{} `cbor:",toarray"`
	Atom  []byte
	First int64
	Rest  int64
}

// ToGraph flattens v.
func ToGraph(v *Value) *Graph {
	g := &Graph{}
	index := make(map[*Value]int64)
	type step struct {
		v    *Value
		done bool
	}
	stack := []step{{v: v}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := index[s.v]; ok {
			continue
		}
		if !s.v.IsPair() {
			index[s.v] = int64(len(g.Nodes))
			g.Nodes = append(g.Nodes, GraphNode{Atom: s.v.Atom, First: -1, Rest: -1})
			continue
		}
		if s.done {
			index[s.v] = int64(len(g.Nodes))
			g.Nodes = append(g.Nodes, GraphNode{First: index[s.v.First], Rest: index[s.v.Rest]})
			continue
		}
		stack = append(stack, step{v: s.v, done: true}, step{v: s.v.Rest}, step{v: s.v.First})
	}
	return g
}

// Value rebuilds the graph. Pairs may only refer to earlier nodes, so the
// result is always acyclic.
func (g *Graph) Value() (*Value, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("mirror: empty graph")
	}
	values := make([]*Value, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.First < 0 {
			values[i] = &Value{Atom: n.Atom}
			if values[i].Atom == nil {
				values[i].Atom = []byte{}
			}
			continue
		}
		if n.First >= int64(i) || n.Rest < 0 || n.Rest >= int64(i) {
			return nil, fmt.Errorf("mirror: node %d refers forward", i)
		}
		values[i] = NewPair(values[n.First], values[n.Rest])
	}
	return values[len(values)-1], nil
}

// MarshalValue serializes v to CBOR bytes.
func MarshalValue(v *Value) ([]byte, error) {
	return cborEncMode.Marshal(ToGraph(v))
}

// UnmarshalValue deserializes a value from CBOR bytes.
func UnmarshalValue(data []byte) (*Value, error) {
	var g Graph
	if err := cbor.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("mirror: unmarshal value: %w", err)
	}
	return g.Value()
}
