package vm

import "math/bits"

// ---------------------------------------------------------------------------
// Evaluator
//
// The evaluate/apply loop runs on explicit value and frame stacks instead of
// Go recursion, so program depth is bounded by the cost ceiling rather than
// by the goroutine stack. Frames are processed strictly LIFO, which gives
// the same evaluation order and cost accounting as call/return recursion.
// ---------------------------------------------------------------------------

type frameKind uint8

const (
	// evaluate program in env and push the result
	frameEval frameKind = iota
	// pop argc values, build the argument list and dispatch program's operator
	frameApply
)

type frame[P comparable] struct {
	kind    frameKind
	program P
	env     P
	argc    int
}

type machine[P comparable] struct {
	a       Allocator[P]
	quote   byte
	apply   byte
	handler OperatorHandler[P]

	vals   []P
	frames []frame[P]

	cost    Cost
	maxCost Cost
}

// RunProgram evaluates program against env. Atom programs are paths into
// env; pair programs apply their operator to their evaluated operands, except
// that an operator equal to quote returns its operands unevaluated, and one
// equal to apply evaluates its first argument against its second.
//
// The evaluation fails with CostExceeded as soon as the accumulated cost
// exceeds maxCost, so a program whose total cost is K succeeds with a
// ceiling of K and fails with K-1. The returned error is an *EvalErr[P] or,
// on allocator exhaustion, an error wrapping ErrAllocation. On failure the
// returned cost is what was charged before the failing step, or maxCost
// when the ceiling was crossed.
func RunProgram[P comparable](a Allocator[P], program, env P, quote, apply byte, maxCost Cost, handler OperatorHandler[P]) (Reduction[P], error) {
	m := &machine[P]{
		a:       a,
		quote:   quote,
		apply:   apply,
		handler: handler,
		vals:    make([]P, 0, 64),
		frames:  make([]frame[P], 0, 64),
		maxCost: maxCost,
	}
	m.frames = append(m.frames, frame[P]{kind: frameEval, program: program, env: env})

	for len(m.frames) > 0 {
		f := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]

		var err error
		switch f.kind {
		case frameEval:
			err = m.eval(f.program, f.env)
		case frameApply:
			err = m.applyOp(f)
		}
		if err != nil {
			if e, ok := AsEvalErr[P](err); ok && e.Kind == KindCostExceeded {
				m.cost = maxCost
			}
			return Reduction[P]{Cost: m.cost}, err
		}
	}
	return Reduction[P]{m.cost, m.vals[len(m.vals)-1]}, nil
}

// charge adds c to the running total, failing on the node being evaluated
// if the ceiling is crossed.
func (m *machine[P]) charge(c Cost, node P) error {
	if c > m.maxCost-m.cost {
		m.cost = m.maxCost
		return NewEvalErr(node, KindCostExceeded, "cost exceeded")
	}
	m.cost += c
	return nil
}

func (m *machine[P]) push(p P) {
	m.vals = append(m.vals, p)
}

func (m *machine[P]) eval(program, env P) error {
	s := m.a.SExp(program)
	if !s.Pair {
		r, err := TraversePath(m.a, m.a.Buf(program), env)
		if err != nil {
			return err
		}
		if err := m.charge(r.Cost, program); err != nil {
			return err
		}
		m.push(r.Node)
		return nil
	}

	op, operands := s.First, s.Rest
	if m.a.SExp(op).Pair {
		return NewEvalErr(op, KindNotAnAtom, "operator must be an atom")
	}
	if opBuf := m.a.Buf(op); len(opBuf) == 1 && opBuf[0] == m.quote {
		if err := m.charge(QuoteCost, program); err != nil {
			return err
		}
		m.push(operands)
		return nil
	}

	m.frames = append(m.frames, frame[P]{kind: frameApply, program: program, env: env})
	applyIdx := len(m.frames) - 1
	argc := 0
	for cur := operands; ; {
		cs := m.a.SExp(cur)
		if !cs.Pair {
			if len(m.a.Buf(cur)) != 0 {
				return NewEvalErr(operands, KindBadOperandList, "bad operand list")
			}
			break
		}
		m.frames = append(m.frames, frame[P]{kind: frameEval, program: cs.First, env: env})
		argc++
		cur = cs.Rest
	}
	m.frames[applyIdx].argc = argc

	// evaluate operands left to right
	evals := m.frames[applyIdx+1:]
	for i, j := 0, len(evals)-1; i < j; i, j = i+1, j-1 {
		evals[i], evals[j] = evals[j], evals[i]
	}
	return nil
}

func (m *machine[P]) applyOp(f frame[P]) error {
	base := len(m.vals) - f.argc
	args := m.a.Null()
	for i := len(m.vals) - 1; i >= base; i-- {
		var err error
		args, err = m.a.NewPair(m.vals[i], args)
		if err != nil {
			return err
		}
	}
	m.vals = m.vals[:base]

	op := m.a.Buf(m.a.SExp(f.program).First)
	if len(op) == 1 && op[0] == m.apply {
		argList := NewNode(m.a, args)
		if err := CheckArgCount(argList, 2, "a"); err != nil {
			return err
		}
		if err := m.charge(ApplyCost, f.program); err != nil {
			return err
		}
		program, _ := argList.First()
		rest, _ := argList.Rest()
		env, _ := rest.First()
		m.frames = append(m.frames, frame[P]{kind: frameEval, program: program.Ptr, env: env.Ptr})
		return nil
	}

	r, err := m.handler.Op(m.a, op, args, m.maxCost-m.cost)
	if err != nil {
		return err
	}
	if err := m.charge(r.Cost, f.program); err != nil {
		return err
	}
	m.push(r.Node)
	return nil
}

// ---------------------------------------------------------------------------
// Path traversal
// ---------------------------------------------------------------------------

// TraversePath walks env along path, read as an unsigned big-endian
// integer. Zero selects env itself. Otherwise the bits after the most
// significant set bit are read from most to least significant: a 0 bit
// takes the first component and a 1 bit takes the rest.
func TraversePath[P comparable](a Allocator[P], path []byte, env P) (Reduction[P], error) {
	first := 0
	for first < len(path) && path[first] == 0 {
		first++
	}
	cost := TraverseBaseCost + Cost(first)*TraverseCostPerZeroByte + TraverseCostPerBit
	if first == len(path) {
		return Reduction[P]{cost, env}, nil
	}

	node := env
	// the leading set bit is a sentinel and is not walked
	bit := bits.Len8(path[first]) - 2
	for idx := first; idx < len(path); idx++ {
		for ; bit >= 0; bit-- {
			s := a.SExp(node)
			if !s.Pair {
				return Reduction[P]{}, NewEvalErr(node, KindNotACons, "path into atom")
			}
			if path[idx]&(1<<bit) != 0 {
				node = s.Rest
			} else {
				node = s.First
			}
			cost += TraverseCostPerBit
		}
		bit = 7
	}
	return Reduction[P]{cost, node}, nil
}
