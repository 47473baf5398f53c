// Package vm implements the cost-metered S-expression evaluator.
//
// This package contains:
//   - The Allocator capability and its arena (IntAllocator) and
//     pointer-graph (RefAllocator) implementations
//   - Node, a borrow-scoped view pairing a pointer with its allocator
//   - Canonical two's-complement conversion between atoms and integers
//   - The built-in operator set and its dense opcode table (Dialect)
//   - RunProgram, the evaluate/apply loop
//
// Nothing in this package logs or reads global state: evaluation must be
// reproducible bit-for-bit.
package vm
