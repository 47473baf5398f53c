package asm

import "github.com/chazu/clvm/vm"

// Keywords maps operator symbols to the opcode atoms they assemble to.
type Keywords map[string]byte

// DefaultKeywords returns the quote and apply keywords plus every built-in
// operator at its default opcode.
func DefaultKeywords() Keywords {
	return KeywordsFor(vm.DefaultOpcodes, vm.QuoteOpcode, vm.ApplyOpcode)
}

// KeywordsFor builds a keyword table from an operator table and the
// evaluator's quote and apply opcodes.
func KeywordsFor(opcodes map[string]byte, quote, apply byte) Keywords {
	k := Keywords{"q": quote, "a": apply}
	for name, code := range opcodes {
		k[name] = code
	}
	return k
}

// Names inverts k for disassembly.
func (k Keywords) Names() map[byte]string {
	names := make(map[byte]string, len(k))
	for name, code := range k {
		names[code] = name
	}
	return names
}
