package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chazu/clvm/asm"
	"github.com/chazu/clvm/config"
	"github.com/chazu/clvm/serde"
	"github.com/chazu/clvm/vm"
)

// evaluator runs programs locally with the operator table of a
// configuration.
type evaluator struct {
	dialect  *vm.Dialect[vm.NodePtr]
	keywords asm.Keywords
	names    map[byte]string
	quote    byte
	apply    byte
	maxCost  vm.Cost
	strict   bool
}

func newEvaluator(cfg *config.Config) (*evaluator, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	keywords := cfg.Keywords()
	return &evaluator{
		dialect:  dialect,
		keywords: keywords,
		names:    keywords.Names(),
		quote:    cfg.Quote(),
		apply:    cfg.Apply(),
		maxCost:  vm.Cost(cfg.Run.MaxCost),
		strict:   cfg.Run.Strict,
	}, nil
}

// assemble parses one expression of text. Symbols matching no keyword are
// rejected in strict mode.
func (e *evaluator) assemble(a *vm.IntAllocator, text string) (vm.NodePtr, error) {
	return asm.ParseStrict[vm.NodePtr](a, text, e.keywords, e.strict)
}

// decodeHex deserializes a hex-encoded node. Surrounding whitespace and a
// 0x prefix are ignored.
func (e *evaluator) decodeHex(a *vm.IntAllocator, s string) (vm.NodePtr, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return a.Null(), fmt.Errorf("decoding hex: %w", err)
	}
	return serde.NodeFromBytes[vm.NodePtr](a, b)
}

// run evaluates program against env. A maxCost of zero, or one above the
// configured ceiling, uses the ceiling.
func (e *evaluator) run(a *vm.IntAllocator, program, env vm.NodePtr, maxCost vm.Cost) (vm.Reduction[vm.NodePtr], error) {
	if maxCost == 0 || maxCost > e.maxCost {
		maxCost = e.maxCost
	}
	return vm.RunProgram[vm.NodePtr](a, program, env, e.quote, e.apply, maxCost, e.dialect)
}

func (e *evaluator) format(a *vm.IntAllocator, n vm.NodePtr) string {
	return asm.Disassemble[vm.NodePtr](a, n, e.names)
}

// describe renders an evaluation failure with the node it names.
func (e *evaluator) describe(a *vm.IntAllocator, err error) string {
	if ee, ok := vm.AsEvalErr[vm.NodePtr](err); ok {
		return fmt.Sprintf("FAIL: %s %s", ee.Msg, e.format(a, ee.Node))
	}
	return "FAIL: " + err.Error()
}
