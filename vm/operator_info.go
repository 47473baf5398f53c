package vm

// OperatorInfo describes an operator for tooling.
type OperatorInfo struct {
	Name  string
	Arity string
	Cost  string
	Doc   string
}

// Operators lists the evaluator keywords and built-in operators in opcode
// order.
var Operators = []OperatorInfo{
	{"q", "any", "20", "quote: returns its operands unevaluated"},
	{"a", "2", "90", "apply: evaluates the first argument with the second as environment"},
	{"i", "3", "33", "if: selects the second argument when the first is non-nil, else the third"},
	{"c", "2", "50", "cons: builds a pair"},
	{"f", "1", "30", "first: the first component of a pair"},
	{"r", "1", "30", "rest: the second component of a pair"},
	{"l", "1", "19", "listp: 1 if the argument is a pair, nil otherwise"},
	{"x", "any", "-", "raise: fails with the argument list"},
	{"=", "2", "117 + len(a) + len(b)", "eq: 1 if both atoms are byte-identical, nil otherwise"},
}

// LookupOperator returns the documentation for name.
func LookupOperator(name string) (OperatorInfo, bool) {
	for _, op := range Operators {
		if op.Name == name {
			return op, true
		}
	}
	return OperatorInfo{}, false
}
