package vm

// Cost is the unit of metered work charged to a program.
type Cost uint64

// ---------------------------------------------------------------------------
// Evaluator costs
// ---------------------------------------------------------------------------

const (
	QuoteCost Cost = 20
	// lowered from 138
	ApplyCost Cost = 90

	TraverseBaseCost        Cost = 40
	TraverseCostPerZeroByte Cost = 4
	TraverseCostPerBit      Cost = 4
)

// ---------------------------------------------------------------------------
// Operator costs
// ---------------------------------------------------------------------------

const (
	IfCost    Cost = 33
	ConsCost  Cost = 50
	FirstCost Cost = 30
	// same as first; rest allocates nothing
	RestCost  Cost = 30
	ListpCost Cost = 19

	EqBaseCost    Cost = 117
	EqCostPerByte Cost = 1
)

// Reduction is the success result of an evaluation step: the cost it
// incurred and the node it produced.
type Reduction[P comparable] struct {
	Cost Cost
	Node P
}
