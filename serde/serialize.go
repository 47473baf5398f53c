// Package serde implements the canonical binary encoding of node graphs.
//
// Encoding conventions:
//   - 0xff introduces a pair, followed by its first then its rest
//   - 0x80 is the empty atom
//   - a single byte atom 0x00..0x7f encodes as itself
//   - any other atom is a length prefix followed by its bytes; the number
//     of leading 1 bits in the first prefix byte gives the prefix width
//
// Every routine walks the graph with an explicit stack so that deeply
// nested lists cannot exhaust the goroutine stack.
package serde

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/clvm/vm"
)

const (
	pairPrefix byte = 0xff
	nilAtom    byte = 0x80

	// MaxAtomLen is one past the longest atom a 5-byte prefix can describe.
	MaxAtomLen = 0x400000000
)

// Serialize writes the encoding of node to w.
func Serialize[P comparable](a vm.Allocator[P], node P, w io.Writer) error {
	s := &serializer{buf: make([]byte, 0, 256)}
	stack := []P{node}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sexp := a.SExp(p)
		if sexp.Pair {
			s.writeByte(pairPrefix)
			stack = append(stack, sexp.Rest, sexp.First)
			continue
		}
		if err := s.writeAtom(a.Buf(p)); err != nil {
			return err
		}
		if len(s.buf) >= 64*1024 {
			if _, err := w.Write(s.buf); err != nil {
				return err
			}
			s.buf = s.buf[:0]
		}
	}
	_, err := w.Write(s.buf)
	return err
}

// NodeToBytes returns the encoding of node.
func NodeToBytes[P comparable](a vm.Allocator[P], node P) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(a, node, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeAtom(atom []byte) error {
	switch {
	case len(atom) == 0:
		s.writeByte(nilAtom)
		return nil
	case len(atom) == 1 && atom[0] <= 0x7f:
		s.writeByte(atom[0])
		return nil
	}
	prefix, err := encodeSize(uint64(len(atom)))
	if err != nil {
		return err
	}
	s.buf = append(s.buf, prefix...)
	s.buf = append(s.buf, atom...)
	return nil
}

// encodeSize returns the length prefix for an atom of size bytes.
func encodeSize(size uint64) ([]byte, error) {
	switch {
	case size < 0x40:
		return []byte{0x80 | byte(size)}, nil
	case size < 0x2000:
		return []byte{0xc0 | byte(size>>8), byte(size)}, nil
	case size < 0x100000:
		return []byte{0xe0 | byte(size>>16), byte(size >> 8), byte(size)}, nil
	case size < 0x8000000:
		return []byte{0xf0 | byte(size>>24), byte(size >> 16), byte(size >> 8), byte(size)}, nil
	case size < MaxAtomLen:
		return []byte{0xf8 | byte(size>>32), byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}, nil
	}
	return nil, fmt.Errorf("serde: atom of %d bytes is too large", size)
}
