package serde

import (
	"crypto/sha256"

	"github.com/chazu/clvm/vm"
)

// Hash domain tags.
const (
	atomTag byte = 0x01
	pairTag byte = 0x02
)

// TreeHash returns the structural hash of node: sha256(0x01 || atom) for
// atoms and sha256(0x02 || hash(first) || hash(rest)) for pairs. Shared
// substructure is hashed once.
func TreeHash[P comparable](a vm.Allocator[P], node P) [32]byte {
	type step struct {
		p    P
		done bool
	}
	memo := make(map[P][32]byte)
	var hashes [][32]byte
	stack := []step{{p: node}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.done {
			rest, first := hashes[len(hashes)-1], hashes[len(hashes)-2]
			hashes = hashes[:len(hashes)-2]
			h := sha256.New()
			h.Write([]byte{pairTag})
			h.Write(first[:])
			h.Write(rest[:])
			var sum [32]byte
			h.Sum(sum[:0])
			memo[s.p] = sum
			hashes = append(hashes, sum)
			continue
		}
		if sum, ok := memo[s.p]; ok {
			hashes = append(hashes, sum)
			continue
		}
		sexp := a.SExp(s.p)
		if !sexp.Pair {
			sum := sha256.Sum256(append([]byte{atomTag}, a.Buf(s.p)...))
			memo[s.p] = sum
			hashes = append(hashes, sum)
			continue
		}
		stack = append(stack, step{p: s.p, done: true}, step{p: sexp.Rest}, step{p: sexp.First})
	}
	return hashes[0]
}

// SerializedLength returns the number of bytes Serialize would write for
// node, without producing them.
func SerializedLength[P comparable](a vm.Allocator[P], node P) (uint64, error) {
	var total uint64
	stack := []P{node}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sexp := a.SExp(p)
		if sexp.Pair {
			total++
			stack = append(stack, sexp.Rest, sexp.First)
			continue
		}
		n, err := atomLength(a.Buf(p))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func atomLength(atom []byte) (uint64, error) {
	if len(atom) == 0 || (len(atom) == 1 && atom[0] <= 0x7f) {
		return 1, nil
	}
	prefix, err := encodeSize(uint64(len(atom)))
	if err != nil {
		return 0, err
	}
	return uint64(len(prefix)) + uint64(len(atom)), nil
}
