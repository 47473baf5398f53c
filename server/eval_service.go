package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/clvm/api"
	"github.com/chazu/clvm/asm"
	"github.com/chazu/clvm/config"
	"github.com/chazu/clvm/mirror"
	"github.com/chazu/clvm/serde"
	"github.com/chazu/clvm/vm"
)

var log = commonlog.GetLogger("clvm.server")

// EvalService implements the evaluation service handlers.
type EvalService struct {
	pool     *EvalPool
	audit    *AuditLog
	dialect  *vm.Dialect[vm.NodePtr]
	keywords asm.Keywords
	names    map[byte]string
	quote    byte
	apply    byte
	maxCost  vm.Cost
	strict   bool
}

// NewEvalService creates an EvalService evaluating with the operator
// table and limits of cfg. audit may be nil.
func NewEvalService(pool *EvalPool, cfg *config.Config, audit *AuditLog) (*EvalService, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	keywords := cfg.Keywords()
	return &EvalService{
		pool:     pool,
		audit:    audit,
		dialect:  dialect,
		keywords: keywords,
		names:    keywords.Names(),
		quote:    cfg.Quote(),
		apply:    cfg.Apply(),
		maxCost:  vm.Cost(cfg.Run.MaxCost),
		strict:   cfg.Run.Strict,
	}, nil
}

// Run evaluates a program.
func (s *EvalService) Run(
	ctx context.Context,
	req *connect.Request[api.RunRequest],
) (*connect.Response[api.RunResponse], error) {
	msg := req.Msg
	if len(msg.Program) == 0 && msg.ProgramText == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}

	id := uuid.NewString()
	start := time.Now()
	entry := AuditEntry{RequestID: id, Time: start, Procedure: api.RunProcedure}

	result, err := s.pool.Do(ctx, func(a *vm.IntAllocator) (any, error) {
		return s.run(a, msg, id)
	})
	if err != nil {
		entry.Outcome = "failed"
		entry.Message = err.Error()
		s.record(ctx, entry)
		return nil, toConnectError(err)
	}

	out := result.(*runOutcome)
	resp := out.resp
	entry.ProgramHash, entry.EnvHash = out.programHash, out.envHash
	entry.Cost = resp.Cost
	entry.Outcome = "ok"
	if resp.Error != nil {
		entry.Outcome = resp.Error.Kind
		entry.Message = resp.Error.Message
	}
	log.Debugf("run %s: %s cost=%d in %s", id, entry.Outcome, resp.Cost, time.Since(start))
	s.record(ctx, entry)
	return connect.NewResponse(resp), nil
}

type runOutcome struct {
	resp        *api.RunResponse
	programHash string
	envHash     string
}

// run executes on a pool goroutine and owns a.
func (s *EvalService) run(a *vm.IntAllocator, msg *api.RunRequest, id string) (*runOutcome, error) {
	program, err := s.decode(a, msg.Program, msg.ProgramText)
	if err != nil {
		return nil, badRequest("program", err)
	}

	m := mirror.New[vm.NodePtr](a)
	env := a.Null()
	switch {
	case len(msg.Env) > 0 || msg.EnvText != "":
		env, err = s.decode(a, msg.Env, msg.EnvText)
	case msg.EnvValue != nil:
		var v *mirror.Value
		if v, err = msg.EnvValue.Value(); err == nil {
			env, err = m.NativeFor(v)
		}
	}
	if err != nil {
		return nil, badRequest("env", err)
	}

	programHash := serde.TreeHash[vm.NodePtr](a, program)
	envHash := serde.TreeHash[vm.NodePtr](a, env)
	out := &runOutcome{
		programHash: hex.EncodeToString(programHash[:]),
		envHash:     hex.EncodeToString(envHash[:]),
	}

	maxCost := s.maxCost
	if msg.MaxCost != 0 && vm.Cost(msg.MaxCost) < maxCost {
		maxCost = vm.Cost(msg.MaxCost)
	}

	r, err := vm.RunProgram[vm.NodePtr](a, program, env, s.quote, s.apply, maxCost, s.dialect)
	resp := &api.RunResponse{RequestID: id, Cost: uint64(r.Cost)}
	out.resp = resp
	if err != nil {
		e, ok := vm.AsEvalErr[vm.NodePtr](err)
		if !ok {
			return nil, err
		}
		resp.Error = &api.EvalError{
			Kind:     e.Kind.String(),
			Message:  e.Msg,
			NodeText: asm.Disassemble[vm.NodePtr](a, e.Node, s.names),
		}
		if resp.Error.Node, err = serde.NodeToBytes[vm.NodePtr](a, e.Node); err != nil {
			return nil, err
		}
		return out, nil
	}

	if resp.Result, err = serde.NodeToBytes[vm.NodePtr](a, r.Node); err != nil {
		return nil, err
	}
	resp.ResultText = asm.Disassemble[vm.NodePtr](a, r.Node, s.names)
	if msg.EnvValue != nil {
		resp.ResultValue = mirror.ToGraph(m.HostFor(r.Node))
	}
	return out, nil
}

// Assemble converts assembly text to its serialized form.
func (s *EvalService) Assemble(
	ctx context.Context,
	req *connect.Request[api.AssembleRequest],
) (*connect.Response[api.AssembleResponse], error) {
	result, err := s.pool.Do(ctx, func(a *vm.IntAllocator) (any, error) {
		program, err := s.parse(a, req.Msg.Text)
		if err != nil {
			return nil, badRequest("text", err)
		}
		buf, err := serde.NodeToBytes[vm.NodePtr](a, program)
		if err != nil {
			return nil, err
		}
		hash := serde.TreeHash[vm.NodePtr](a, program)
		return &api.AssembleResponse{Program: buf, TreeHash: hash[:]}, nil
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result.(*api.AssembleResponse)), nil
}

// Disassemble converts a serialized program to assembly text.
func (s *EvalService) Disassemble(
	ctx context.Context,
	req *connect.Request[api.DisassembleRequest],
) (*connect.Response[api.DisassembleResponse], error) {
	result, err := s.pool.Do(ctx, func(a *vm.IntAllocator) (any, error) {
		program, err := serde.NodeFromBytes[vm.NodePtr](a, req.Msg.Program)
		if err != nil {
			return nil, badRequest("program", err)
		}
		return &api.DisassembleResponse{Text: asm.Disassemble[vm.NodePtr](a, program, s.names)}, nil
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result.(*api.DisassembleResponse)), nil
}

func (s *EvalService) decode(a *vm.IntAllocator, buf []byte, text string) (vm.NodePtr, error) {
	if len(buf) > 0 {
		return serde.NodeFromBytes[vm.NodePtr](a, buf)
	}
	return s.parse(a, text)
}

// parse assembles text, rejecting unknown symbols when strict.
func (s *EvalService) parse(a *vm.IntAllocator, text string) (vm.NodePtr, error) {
	return asm.ParseStrict[vm.NodePtr](a, text, s.keywords, s.strict)
}

func (s *EvalService) record(ctx context.Context, e AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Errorf("audit: %s", err)
	}
}

func badRequest(field string, err error) error {
	if errors.Is(err, vm.ErrAllocation) {
		return err
	}
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s: %w", field, err))
}

// toConnectError maps pool and allocator failures to RPC status codes.
func toConnectError(err error) error {
	var ce *connect.Error
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, vm.ErrAllocation):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, ErrPoolStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	log.Errorf("internal error: %s", err)
	return connect.NewError(connect.CodeInternal, err)
}
