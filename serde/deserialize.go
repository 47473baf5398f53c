package serde

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/clvm/vm"
)

// Decoding errors.
var (
	ErrTruncated = errors.New("serde: unexpected end of input")
	ErrBadPrefix = errors.New("serde: invalid length prefix")
	ErrTrailing  = errors.New("serde: trailing bytes after node")
)

type decodeOp uint8

const (
	// parse one node and push it
	opParse decodeOp = iota
	// pop rest and first, push (first . rest)
	opCons
)

// Deserialize reads exactly one node from r. Allocator failures are
// returned wrapped so that errors.Is(err, vm.ErrAllocation) holds.
func Deserialize[P comparable](a vm.Allocator[P], r io.Reader) (P, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &decoder[P]{a: a, r: br}
	return d.decode()
}

// NodeFromBytes decodes b, which must hold exactly one node.
func NodeFromBytes[P comparable](a vm.Allocator[P], b []byte) (P, error) {
	c := &cursor{buf: b}
	d := &decoder[P]{a: a, r: c}
	p, err := d.decode()
	if err != nil {
		return p, err
	}
	if c.pos != len(b) {
		var zero P
		return zero, fmt.Errorf("%w: %d bytes", ErrTrailing, len(b)-c.pos)
	}
	return p, nil
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

type decoder[P comparable] struct {
	a vm.Allocator[P]
	r byteReader
}

func (d *decoder[P]) decode() (P, error) {
	var zero P
	ops := []decodeOp{opParse}
	var vals []P
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]

		if op == opCons {
			rest, first := vals[len(vals)-1], vals[len(vals)-2]
			vals = vals[:len(vals)-2]
			p, err := d.a.NewPair(first, rest)
			if err != nil {
				return zero, fmt.Errorf("serde: %w", err)
			}
			vals = append(vals, p)
			continue
		}

		b, err := d.readByte()
		if err != nil {
			return zero, err
		}
		if b == pairPrefix {
			ops = append(ops, opCons, opParse, opParse)
			continue
		}
		p, err := d.atom(b)
		if err != nil {
			return zero, err
		}
		vals = append(vals, p)
	}
	return vals[0], nil
}

func (d *decoder[P]) atom(b byte) (P, error) {
	var zero P
	switch {
	case b == nilAtom:
		return d.a.Null(), nil
	case b <= 0x7f:
		p, err := d.a.NewAtom([]byte{b})
		if err != nil {
			return zero, fmt.Errorf("serde: %w", err)
		}
		return p, nil
	}
	size, err := d.decodeSize(b)
	if err != nil {
		return zero, err
	}
	buf, err := d.readAtom(size)
	if err != nil {
		return zero, err
	}
	p, err := d.a.NewAtom(buf)
	if err != nil {
		return zero, fmt.Errorf("serde: %w", err)
	}
	return p, nil
}

// decodeSize reads the remainder of the length prefix that begins with b.
func (d *decoder[P]) decodeSize(b byte) (uint64, error) {
	width := 0
	for mask := byte(0x80); b&mask != 0; mask >>= 1 {
		width++
		b &^= mask
	}
	// five prefix bytes describe at most MaxAtomLen-1
	if width > 5 {
		return 0, ErrBadPrefix
	}
	size := uint64(b)
	for i := 1; i < width; i++ {
		nb, err := d.readByte()
		if err != nil {
			return 0, err
		}
		size = size<<8 | uint64(nb)
	}
	return size, nil
}

func (d *decoder[P]) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, ErrTruncated
	}
	return b, err
}

// readAtom reads size bytes. Stream input is buffered as it arrives so a
// forged length prefix cannot force a large allocation up front.
func (d *decoder[P]) readAtom(size uint64) ([]byte, error) {
	if c, ok := d.r.(*cursor); ok {
		if uint64(len(c.buf)-c.pos) < size {
			return nil, ErrTruncated
		}
		buf := make([]byte, size)
		c.pos += copy(buf, c.buf[c.pos:])
		return buf, nil
	}
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, d.r, int64(size))
	if uint64(n) < size {
		return nil, ErrTruncated
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cursor is a byte reader over an in-memory buffer.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}
