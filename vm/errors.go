package vm

import (
	"errors"
	"fmt"
)

// ErrAllocation is wrapped by every allocator resource-exhaustion error.
// It is never reported as an EvalErr: it is not attributable to the
// evaluated program and must not be retried with a larger budget.
var ErrAllocation = errors.New("allocation failed")

// ErrKind classifies an EvalErr.
type ErrKind int

const (
	KindNotACons ErrKind = iota + 1
	KindNotAnAtom
	KindArityMismatch
	KindNonCanonicalInteger
	KindExplicitRaise
	KindCostExceeded
	KindUnknownOperator
	KindBadOperandList
)

var errKindNames = map[ErrKind]string{
	KindNotACons:            "NotACons",
	KindNotAnAtom:           "NotAnAtom",
	KindArityMismatch:       "ArityMismatch",
	KindNonCanonicalInteger: "NonCanonicalInteger",
	KindExplicitRaise:       "ExplicitRaise",
	KindCostExceeded:        "CostExceeded",
	KindUnknownOperator:     "UnknownOperator",
	KindBadOperandList:      "BadOperandList",
}

func (k ErrKind) String() string {
	if name, ok := errKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// EvalErr is the failure result of an evaluation. Node is the most
// specific sub-expression responsible for the failure.
type EvalErr[P comparable] struct {
	Node P
	Kind ErrKind
	Msg  string
}

func (e *EvalErr[P]) Error() string {
	return e.Msg
}

// ErrKind reports the error's classification.
func (e *EvalErr[P]) ErrKind() ErrKind {
	return e.Kind
}

// NewEvalErr creates an EvalErr bound to node.
func NewEvalErr[P comparable](node P, kind ErrKind, msg string) *EvalErr[P] {
	return &EvalErr[P]{Node: node, Kind: kind, Msg: msg}
}

// KindOf returns the classification of err if it is (or wraps) an
// EvalErr of any pointer type.
func KindOf(err error) (ErrKind, bool) {
	var k interface{ ErrKind() ErrKind }
	if errors.As(err, &k) {
		return k.ErrKind(), true
	}
	return 0, false
}

// AsEvalErr unwraps err into an EvalErr over pointer type P.
func AsEvalErr[P comparable](err error) (*EvalErr[P], bool) {
	var e *EvalErr[P]
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
