package vm

import "math/big"

// ---------------------------------------------------------------------------
// Canonical integer encoding
//
// Atoms denote signed integers in big-endian two's complement. The
// canonical encoding is minimal: zero is the empty atom, and a leading 0x00
// (or 0xff) byte appears only when needed to keep the sign bit clear (set).
// ---------------------------------------------------------------------------

var bigOne = big.NewInt(1)

// NumberFromBytes decodes an atom as a signed integer. Every byte string
// decodes; non-canonical encodings decode to the same value as their
// canonical form.
func NumberFromBytes(buf []byte) *big.Int {
	n := new(big.Int).SetBytes(buf)
	if len(buf) > 0 && buf[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(bigOne, uint(len(buf))*8))
	}
	return n
}

// BytesFromNumber returns the canonical encoding of n.
func BytesFromNumber(n *big.Int) []byte {
	switch n.Sign() {
	case 0:
		return []byte{}
	case 1:
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}
	// ^n = -n-1 is the magnitude that must fit below the sign bit
	size := new(big.Int).Not(n).BitLen()/8 + 1
	m := new(big.Int).Add(n, new(big.Int).Lsh(bigOne, uint(size)*8))
	return m.Bytes()
}

// IsCanonical reports whether buf is the minimal encoding of its value.
func IsCanonical(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if len(buf) == 1 {
		return buf[0] != 0
	}
	if buf[0] == 0x00 && buf[1]&0x80 == 0 {
		return false
	}
	if buf[0] == 0xff && buf[1]&0x80 != 0 {
		return false
	}
	return true
}

// NewNumber allocates the canonical atom for n.
func NewNumber[P comparable](a Allocator[P], n *big.Int) (P, error) {
	return a.NewAtom(BytesFromNumber(n))
}

// NumberOf reads atom p as a signed integer. Pairs are not numbers.
func NumberOf[P comparable](a Allocator[P], p P) (*big.Int, bool) {
	if a.SExp(p).Pair {
		return nil, false
	}
	return NumberFromBytes(a.Buf(p)), true
}

// ---------------------------------------------------------------------------
// Fixed-width fast paths
// ---------------------------------------------------------------------------

func u32FromBytes(buf []byte, signed bool) (uint32, bool) {
	if len(buf) == 0 {
		return 0, true
	}
	// too many bytes for 32 bits
	if len(buf) > 4 {
		return 0, false
	}
	// unsigned reads bits literally, so only a redundant 0x00 is rejected
	if (signed && !IsCanonical(buf)) || (!signed && hasRedundantZero(buf)) {
		return 0, false
	}
	var ret uint32
	if signed && buf[0]&0x80 != 0 {
		ret = 0xffffffff
	}
	for _, b := range buf {
		ret = ret<<8 | uint32(b)
	}
	return ret, true
}

func hasRedundantZero(buf []byte) bool {
	return buf[0] == 0x00 && (len(buf) == 1 || buf[1]&0x80 == 0)
}

// U32FromBytes decodes an atom of at most 4 bytes, reading the bits
// literally. A leading 0x00 is accepted only when the next byte has its
// top bit set.
func U32FromBytes(buf []byte) (uint32, bool) {
	return u32FromBytes(buf, false)
}

// I32FromBytes decodes a canonical atom of at most 4 bytes, sign-extending
// from the top bit of the first byte.
func I32FromBytes(buf []byte) (int32, bool) {
	v, ok := u32FromBytes(buf, true)
	return int32(v), ok
}
