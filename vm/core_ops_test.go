package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Core operators, exercised directly with pre-evaluated argument lists
// ---------------------------------------------------------------------------

func TestCoreOps(t *testing.T) {
	t.Run("IntAllocator", func(t *testing.T) { testCoreOps(t, newIntAlloc) })
	t.Run("RefAllocator", func(t *testing.T) { testCoreOps(t, newRefAlloc) })
}

func testCoreOps[P comparable](t *testing.T, newAlloc func() Allocator[P]) {
	t.Run("IfSelects", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		yes, no := b.str("yes"), b.str("no")

		r, err := OpIf(a, b.list(a.Null(), yes, no), 0)
		if err != nil {
			t.Fatal(err)
		}
		if r.Node != no || r.Cost != IfCost {
			t.Errorf("(i 0 yes no) = (%d, %s), want (33, no)", r.Cost, render(a, r.Node))
		}
		r, _ = OpIf(a, b.list(b.atom(0), yes, no), 0)
		if r.Node != yes {
			t.Errorf("(i 0x00 yes no) selected %s; any non-empty atom is true", render(a, r.Node))
		}
		r, _ = OpIf(a, b.list(b.pair(a.Null(), a.Null()), yes, no), 0)
		if r.Node != yes {
			t.Error("a pair condition is true")
		}
	})

	t.Run("IfArity", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		_, err := OpIf(a, b.list(a.One(), a.One()), 0)
		if k, _ := KindOf(err); k != KindArityMismatch {
			t.Errorf("kind = %v, want ArityMismatch", k)
		}
	})

	t.Run("ConsFirstRest", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		x := b.str("x")
		y := b.pair(b.str("y"), a.Null())

		c, err := OpCons(a, b.list(x, y), 0)
		if err != nil {
			t.Fatal(err)
		}
		if c.Cost != ConsCost {
			t.Errorf("cons cost = %d, want 50", c.Cost)
		}
		f, err := OpFirst(a, b.list(c.Node), 0)
		if err != nil {
			t.Fatal(err)
		}
		if f.Node != x || f.Cost != FirstCost {
			t.Errorf("first(cons(x, y)) = (%d, %s)", f.Cost, render(a, f.Node))
		}
		r, err := OpRest(a, b.list(c.Node), 0)
		if err != nil {
			t.Fatal(err)
		}
		if r.Node != y || r.Cost != RestCost {
			t.Errorf("rest(cons(x, y)) = (%d, %s)", r.Cost, render(a, r.Node))
		}
	})

	t.Run("FirstRestOfAtom", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		atom := b.str("atom")
		_, err := OpFirst(a, b.list(atom), 0)
		e, ok := AsEvalErr[P](err)
		if !ok || e.Kind != KindNotACons || e.Node != atom {
			t.Errorf("f of atom = %v, want NotACons naming the atom", err)
		}
		_, err = OpRest(a, b.list(atom), 0)
		if k, _ := KindOf(err); k != KindNotACons {
			t.Errorf("r of atom kind = %v, want NotACons", k)
		}
	})

	t.Run("Listp", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		for _, arg := range []P{a.Null(), a.One(), b.str("long atom")} {
			r, err := OpListp(a, b.list(arg), 0)
			if err != nil {
				t.Fatal(err)
			}
			if r.Node != a.Null() || r.Cost != ListpCost {
				t.Errorf("l of atom %s = %s, want ()", render(a, arg), render(a, r.Node))
			}
		}
		r, _ := OpListp(a, b.list(b.pair(a.Null(), a.Null())), 0)
		if r.Node != a.One() {
			t.Errorf("l of pair = %s, want 0x01", render(a, r.Node))
		}
	})

	t.Run("Raise", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		args := b.list(b.str("boom"), a.One())
		_, err := OpRaise(a, args, 0)
		e, ok := AsEvalErr[P](err)
		if !ok {
			t.Fatalf("raise error = %v, want EvalErr", err)
		}
		if e.Kind != KindExplicitRaise || e.Msg != "clvm raise" {
			t.Errorf("raise = (%v, %q)", e.Kind, e.Msg)
		}
		if e.Node != args {
			t.Error("raise should name its whole argument list")
		}
		if _, err := OpRaise(a, a.Null(), 0); err == nil {
			t.Error("raise with no arguments should still fail")
		}
	})

	t.Run("Eq", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		tests := []struct {
			x, y string
			want bool
		}{
			{"", "", true},
			{"abc", "abc", true},
			{"abc", "abd", false},
			{"abc", "ab", false},
			{"\x00", "", false},
		}
		for _, tc := range tests {
			r, err := OpEq(a, b.list(b.str(tc.x), b.str(tc.y)), 0)
			if err != nil {
				t.Fatal(err)
			}
			want := Bool(a, tc.want)
			if r.Node != want {
				t.Errorf("(= %q %q) = %s", tc.x, tc.y, render(a, r.Node))
			}
			if wantCost := EqBaseCost + Cost(len(tc.x)+len(tc.y)); r.Cost != wantCost {
				t.Errorf("(= %q %q) cost = %d, want %d", tc.x, tc.y, r.Cost, wantCost)
			}
		}
	})

	t.Run("EqOnPair", func(t *testing.T) {
		a := newAlloc()
		b := builder[P]{t, a}
		p := b.pair(a.One(), a.One())
		_, err := OpEq(a, b.list(a.One(), p), 0)
		e, ok := AsEvalErr[P](err)
		if !ok || e.Kind != KindNotAnAtom || e.Node != p {
			t.Fatalf("= on pair = %v, want NotAnAtom naming the pair", err)
		}
		if e.Msg != "= on list" {
			t.Errorf("message = %q, want %q", e.Msg, "= on list")
		}
	})
}
