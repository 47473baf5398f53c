package vm

import (
	"bytes"
	"testing"
)

func TestArgCount(t *testing.T) {
	a := NewIntAllocator()
	b := builder[NodePtr]{t, a}
	null := a.Null()
	args0 := null
	args1 := b.pair(null, args0)
	args2 := b.pair(null, args1)
	args3 := b.pair(null, args2)

	tests := []struct {
		args  NodePtr
		limit int
		want  int
	}{
		{args0, 0, 0}, {args0, 1, 0}, {args0, 2, 0},
		{args1, 0, 1}, {args1, 1, 1}, {args1, 2, 1},
		{args2, 0, 1}, {args2, 1, 2}, {args2, 2, 2}, {args2, 3, 2},
		{args3, 0, 1}, {args3, 1, 2}, {args3, 2, 3}, {args3, 3, 3}, {args3, 4, 3},
	}
	for i, tc := range tests {
		if got := ArgCount(NewNode[NodePtr](a, tc.args), tc.limit); got != tc.want {
			t.Errorf("case %d: ArgCount(limit=%d) = %d, want %d", i, tc.limit, got, tc.want)
		}
	}
}

// countingAllocator records how many nodes were classified.
type countingAllocator struct {
	*IntAllocator
	sexps int
}

func (c *countingAllocator) SExp(p NodePtr) SExp[NodePtr] {
	c.sexps++
	return c.IntAllocator.SExp(p)
}

func TestArgCount_BoundedWork(t *testing.T) {
	inner := NewIntAllocator()
	list := inner.Null()
	for i := 0; i < 10000; i++ {
		list, _ = inner.NewPair(inner.Null(), list)
	}

	c := &countingAllocator{IntAllocator: inner}
	if got := ArgCount(NewNode[NodePtr](c, list), 2); got != 3 {
		t.Errorf("ArgCount = %d, want 3", got)
	}
	if c.sexps != 3 {
		t.Errorf("inspected %d cells, want 3", c.sexps)
	}

	c.sexps = 0
	err := CheckArgCount(NewNode[NodePtr](c, list), 2, "c")
	if err == nil {
		t.Fatal("CheckArgCount should fail on 10000 arguments")
	}
	if c.sexps != 3 {
		t.Errorf("CheckArgCount inspected %d cells, want 3", c.sexps)
	}
}

func TestCheckArgCount_Messages(t *testing.T) {
	a := NewIntAllocator()
	b := builder[NodePtr]{t, a}
	args := b.list(a.One(), a.One())

	err := CheckArgCount(NewNode[NodePtr](a, args), 1, "f")
	if err == nil || err.Error() != "f takes exactly 1 argument" {
		t.Errorf("error = %v, want %q", err, "f takes exactly 1 argument")
	}
	err = CheckArgCount(NewNode[NodePtr](a, args), 3, "i")
	if err == nil || err.Error() != "i takes exactly 3 arguments" {
		t.Errorf("error = %v, want %q", err, "i takes exactly 3 arguments")
	}
	e, ok := AsEvalErr[NodePtr](err)
	if !ok {
		t.Fatal("arity error should be an EvalErr")
	}
	if e.Kind != KindArityMismatch {
		t.Errorf("kind = %v, want ArityMismatch", e.Kind)
	}
	if e.Node != args {
		t.Error("arity error should name the argument list")
	}
	if err := CheckArgCount(NewNode[NodePtr](a, args), 2, "c"); err != nil {
		t.Errorf("CheckArgCount(2) = %v, want nil", err)
	}
}

func TestIntAtom(t *testing.T) {
	a := NewIntAllocator()
	b := builder[NodePtr]{t, a}

	// no canonical check; leading zeros are the caller's concern
	buf, err := IntAtom(NewNode[NodePtr](a, b.atom(0x00, 0x01)), "ash")
	if err != nil || !bytes.Equal(buf, []byte{0x00, 0x01}) {
		t.Errorf("IntAtom(0001) = (%x, %v), want (0001, nil)", buf, err)
	}

	_, err = IntAtom(NewNode[NodePtr](a, b.pair(a.Null(), a.Null())), "ash")
	if k, _ := KindOf(err); k != KindNotAnAtom {
		t.Errorf("kind = %v, want NotAnAtom", k)
	}
	if err.Error() != "ash requires int args" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNodeIter(t *testing.T) {
	a := NewIntAllocator()
	b := builder[NodePtr]{t, a}
	list := b.pair(b.atom(1), b.pair(b.atom(2), b.pair(b.atom(3), b.atom(9))))

	var got []byte
	NewNode[NodePtr](a, list).Iter(func(n Node[NodePtr]) bool {
		buf, _ := n.Atom()
		got = append(got, buf...)
		return true
	})
	// the non-nil terminator is not visited
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("visited %x, want 010203", got)
	}

	got = got[:0]
	NewNode[NodePtr](a, list).Iter(func(n Node[NodePtr]) bool {
		buf, _ := n.Atom()
		got = append(got, buf...)
		return len(got) < 2
	})
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("visited %x after stopping, want 0102", got)
	}
}

func TestInt32Atom(t *testing.T) {
	a := NewIntAllocator()
	b := builder[NodePtr]{t, a}

	v, err := Int32Atom(NewNode[NodePtr](a, b.atom(0xff, 0x7f)), "ash")
	if err != nil || v != -129 {
		t.Errorf("Int32Atom(ff7f) = (%d, %v), want (-129, nil)", v, err)
	}

	_, err = Int32Atom(NewNode[NodePtr](a, b.atom(0x00, 0x01)), "ash")
	if k, _ := KindOf(err); k != KindNonCanonicalInteger {
		t.Errorf("kind = %v, want NonCanonicalInteger", k)
	}
	if err.Error() != "ash requires int32 args (with no leading zeros)" {
		t.Errorf("message = %q", err.Error())
	}

	_, err = Int32Atom(NewNode[NodePtr](a, b.pair(a.Null(), a.Null())), "ash")
	if k, _ := KindOf(err); k != KindNotAnAtom {
		t.Errorf("kind = %v, want NotAnAtom", k)
	}
}

func TestNodeFirstRest(t *testing.T) {
	a := NewIntAllocator()
	n := NewNode[NodePtr](a, a.One())
	if _, err := n.First(); err == nil || err.Error() != "first of non-cons" {
		t.Errorf("First() on atom = %v, want first of non-cons", err)
	}
	_, err := n.Rest()
	e, ok := AsEvalErr[NodePtr](err)
	if !ok || e.Kind != KindNotACons || e.Msg != "rest of non-cons" {
		t.Errorf("Rest() on atom = %v, want NotACons rest of non-cons", err)
	}
	if e != nil && e.Node != a.One() {
		t.Error("error should name the atom")
	}
	if !NewNode[NodePtr](a, a.Null()).Nullp() || n.Nullp() {
		t.Error("Nullp should be true only for the empty atom")
	}
}
