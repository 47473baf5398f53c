package api

import "github.com/chazu/clvm/mirror"

// Procedure paths of the evaluation service.
const (
	ServiceName          = "clvm.v1.EvalService"
	RunProcedure         = "/" + ServiceName + "/Run"
	AssembleProcedure    = "/" + ServiceName + "/Assemble"
	DisassembleProcedure = "/" + ServiceName + "/Disassemble"
)

// RunRequest asks the service to evaluate a program. Program and
// environment may each be given serialized, as assembly text or (for the
// environment) as a host value graph; the first non-empty form wins.
type RunRequest struct {
	Program     []byte        `cbor:"1,keyasint,omitempty"`
	ProgramText string        `cbor:"2,keyasint,omitempty"`
	Env         []byte        `cbor:"3,keyasint,omitempty"`
	EnvText     string        `cbor:"4,keyasint,omitempty"`
	EnvValue    *mirror.Graph `cbor:"5,keyasint,omitempty"`
	// MaxCost of zero selects the server's ceiling; larger values are
	// clamped to it.
	MaxCost uint64 `cbor:"6,keyasint,omitempty"`
}

// RunResponse reports the outcome of a RunRequest. Exactly one of Result
// and Error is set. On error Cost is what was charged before the failing
// step; for CostExceeded it is the effective ceiling.
type RunResponse struct {
	RequestID   string        `cbor:"1,keyasint"`
	Cost        uint64        `cbor:"2,keyasint"`
	Result      []byte        `cbor:"3,keyasint,omitempty"`
	ResultText  string        `cbor:"4,keyasint,omitempty"`
	ResultValue *mirror.Graph `cbor:"5,keyasint,omitempty"`
	Error       *EvalError    `cbor:"6,keyasint,omitempty"`
}

// EvalError describes a failed evaluation.
type EvalError struct {
	Kind     string `cbor:"1,keyasint"`
	Message  string `cbor:"2,keyasint"`
	Node     []byte `cbor:"3,keyasint,omitempty"`
	NodeText string `cbor:"4,keyasint,omitempty"`
}

func (e *EvalError) Error() string {
	if e.NodeText != "" {
		return e.Kind + ": " + e.Message + ": " + e.NodeText
	}
	return e.Kind + ": " + e.Message
}

// AssembleRequest carries assembly text.
type AssembleRequest struct {
	Text string `cbor:"1,keyasint"`
}

// AssembleResponse carries the serialized program and its tree hash.
type AssembleResponse struct {
	Program  []byte `cbor:"1,keyasint"`
	TreeHash []byte `cbor:"2,keyasint"`
}

// DisassembleRequest carries a serialized program.
type DisassembleRequest struct {
	Program []byte `cbor:"1,keyasint"`
}

// DisassembleResponse carries assembly text.
type DisassembleResponse struct {
	Text string `cbor:"1,keyasint"`
}
