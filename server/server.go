package server

import (
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/chazu/clvm/api"
	"github.com/chazu/clvm/config"
	"github.com/chazu/clvm/vm"
)

// EvalServer serves the evaluation service over Connect and gRPC on the
// same port. gRPC clients reach it over cleartext HTTP/2.
type EvalServer struct {
	pool  *EvalPool
	audit *AuditLog
	mux   *http.ServeMux
}

// ServerOption configures an EvalServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	allocOpts []vm.IntAllocatorOption
	auditPath string
}

// WithAllocatorOptions sets the limits of the allocator each evaluation
// receives.
func WithAllocatorOptions(opts ...vm.IntAllocatorOption) ServerOption {
	return func(c *serverConfig) { c.allocOpts = append(c.allocOpts, opts...) }
}

// WithAuditDB overrides the audit database path from the configuration.
// An empty path disables auditing.
func WithAuditDB(path string) ServerOption {
	return func(c *serverConfig) { c.auditPath = path }
}

// New creates an EvalServer from cfg.
func New(cfg *config.Config, opts ...ServerOption) (*EvalServer, error) {
	sc := &serverConfig{auditPath: cfg.AuditDBPath()}
	for _, opt := range opts {
		opt(sc)
	}

	s := &EvalServer{mux: http.NewServeMux()}
	if sc.auditPath != "" {
		audit, err := OpenAuditLog(sc.auditPath)
		if err != nil {
			return nil, err
		}
		s.audit = audit
	}
	s.pool = NewEvalPool(cfg.Server.Workers, sc.allocOpts...)

	svc, err := NewEvalService(s.pool, cfg, s.audit)
	if err != nil {
		s.Stop()
		return nil, err
	}

	codec := connect.WithCodec(api.Codec{})
	s.mux.Handle(api.RunProcedure, connect.NewUnaryHandler(api.RunProcedure, svc.Run, codec))
	s.mux.Handle(api.AssembleProcedure, connect.NewUnaryHandler(api.AssembleProcedure, svc.Assemble, codec))
	s.mux.Handle(api.DisassembleProcedure, connect.NewUnaryHandler(api.DisassembleProcedure, svc.Disassemble, codec))

	return s, nil
}

// Handler returns the HTTP handler serving HTTP/1.1 and cleartext HTTP/2.
func (s *EvalServer) Handler() http.Handler {
	return h2c.NewHandler(s.mux, &http2.Server{})
}

// Audit returns the audit log, or nil when auditing is disabled.
func (s *EvalServer) Audit() *AuditLog {
	return s.audit
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *EvalServer) ListenAndServe(addr string) error {
	log.Infof("evaluation service listening on %s", addr)
	log.Infof("  Connect: http://%s%s", addr, api.RunProcedure)
	log.Infof("  gRPC:    grpc://%s (codec %s)", addr, api.CodecName)
	if err := http.ListenAndServe(addr, s.Handler()); err != nil {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// Stop shuts down the worker pool and closes the audit log.
func (s *EvalServer) Stop() {
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			log.Warningf("closing audit log: %s", err)
		}
	}
}
