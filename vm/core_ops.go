package vm

// ---------------------------------------------------------------------------
// Core operators
//
// Each operator receives its fully evaluated argument list and returns the
// cost it incurred with the result node.
// ---------------------------------------------------------------------------

// OpFunc is the signature shared by every built-in operator.
type OpFunc[P comparable] func(a Allocator[P], args P, maxCost Cost) (Reduction[P], error)

// OpIf selects its second argument when the first is non-nil, and its
// third otherwise. Both branches have already been evaluated.
func OpIf[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	args := NewNode(a, input)
	if err := CheckArgCount(args, 3, "i"); err != nil {
		return Reduction[P]{}, err
	}
	cond, _ := args.First()
	chosen, _ := args.Rest()
	if cond.Nullp() {
		chosen, _ = chosen.Rest()
	}
	result, _ := chosen.First()
	return Reduction[P]{IfCost, result.Ptr}, nil
}

func OpCons[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	first, rest, err := TwoArgs(NewNode(a, input), "c")
	if err != nil {
		return Reduction[P]{}, err
	}
	r, err := a.NewPair(first.Ptr, rest.Ptr)
	if err != nil {
		return Reduction[P]{}, err
	}
	return Reduction[P]{ConsCost, r}, nil
}

func OpFirst[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	args := NewNode(a, input)
	if err := CheckArgCount(args, 1, "f"); err != nil {
		return Reduction[P]{}, err
	}
	arg, _ := args.First()
	first, err := arg.First()
	if err != nil {
		return Reduction[P]{}, err
	}
	return Reduction[P]{FirstCost, first.Ptr}, nil
}

func OpRest[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	args := NewNode(a, input)
	if err := CheckArgCount(args, 1, "r"); err != nil {
		return Reduction[P]{}, err
	}
	arg, _ := args.First()
	rest, err := arg.Rest()
	if err != nil {
		return Reduction[P]{}, err
	}
	return Reduction[P]{RestCost, rest.Ptr}, nil
}

func OpListp[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	args := NewNode(a, input)
	if err := CheckArgCount(args, 1, "l"); err != nil {
		return Reduction[P]{}, err
	}
	arg, _ := args.First()
	_, _, isPair := arg.Pair()
	return Reduction[P]{ListpCost, Bool(a, isPair)}, nil
}

// OpRaise always fails, naming its whole argument list.
func OpRaise[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	return Reduction[P]{}, NewNode(a, input).Err(KindExplicitRaise, "clvm raise")
}

func OpEq[P comparable](a Allocator[P], input P, _ Cost) (Reduction[P], error) {
	a0, a1, err := TwoArgs(NewNode(a, input), "=")
	if err != nil {
		return Reduction[P]{}, err
	}
	s0, err := AtomArg(a0, "=")
	if err != nil {
		return Reduction[P]{}, err
	}
	s1, err := AtomArg(a1, "=")
	if err != nil {
		return Reduction[P]{}, err
	}
	cost := EqBaseCost + Cost(len(s0)+len(s1))*EqCostPerByte
	return Reduction[P]{cost, Bool(a, string(s0) == string(s1))}, nil
}
