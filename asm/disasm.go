package asm

import (
	"encoding/hex"
	"strings"

	"github.com/chazu/clvm/vm"
)

// Disassemble renders node as assembly text that Parse turns back into an
// identical graph. names maps opcodes to keywords for atoms in operator
// position; nil uses DefaultKeywords.
func Disassemble[P comparable](a vm.Allocator[P], node P, names map[byte]string) string {
	if names == nil {
		names = DefaultKeywords().Names()
	}
	type item struct {
		node   P
		text   string
		isText bool
		opPos  bool
	}
	var sb strings.Builder
	stack := []item{{node: node}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.isText {
			sb.WriteString(it.text)
			continue
		}
		s := a.SExp(it.node)
		if !s.Pair {
			sb.WriteString(formatAtom(a.Buf(it.node), names, it.opPos))
			continue
		}

		// collect the list spine, pushing in reverse so items print in order
		var items []P
		cur := it.node
		for {
			cs := a.SExp(cur)
			if !cs.Pair {
				break
			}
			items = append(items, cs.First)
			cur = cs.Rest
		}
		sb.WriteByte('(')
		stack = append(stack, item{text: ")", isText: true})
		if len(a.Buf(cur)) != 0 {
			stack = append(stack, item{node: cur}, item{text: " . ", isText: true})
		}
		for i := len(items) - 1; i >= 0; i-- {
			stack = append(stack, item{node: items[i], opPos: i == 0})
			if i > 0 {
				stack = append(stack, item{text: " ", isText: true})
			}
		}
	}
	return sb.String()
}

func formatAtom(buf []byte, names map[byte]string, opPos bool) string {
	if len(buf) == 0 {
		return "()"
	}
	if opPos && len(buf) == 1 {
		if name, ok := names[buf[0]]; ok {
			return name
		}
	}
	if len(buf) <= 4 && vm.IsCanonical(buf) {
		return vm.NumberFromBytes(buf).String()
	}
	if isPrintable(buf) {
		return `"` + string(buf) + `"`
	}
	return "0x" + hex.EncodeToString(buf)
}

// isPrintable reports whether buf can be written as a quoted string that
// reads back unchanged.
func isPrintable(buf []byte) bool {
	for _, c := range buf {
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}
