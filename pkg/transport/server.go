// Package transport exposes the gate orchestrator over HTTP: a single
// POST /v1/execute endpoint, optional bearer-JWT auth, and request-id
// correlation, grounded in core/pkg/auth's middleware shapes.
package transport

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/gate"
)

const maxRequestBody = 1 << 20 // 1 MiB; generous for a policy check payload

// Server wires the gate orchestrator to net/http.
type Server struct {
	orchestrator *gate.Orchestrator
	validator    *Validator
	logger       *slog.Logger
}

// NewServer builds a Server. validator may be nil to disable bearer auth.
func NewServer(o *gate.Orchestrator, validator *Validator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orchestrator: o, validator: validator, logger: logger}
}

// Handler returns the fully wrapped http.Handler: request-id, then
// optional bearer auth, then the execute route and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/execute", s.handleExecute)
	mux.HandleFunc("/healthz", s.handleHealth)

	var h http.Handler = mux
	h = RequireBearer(s.validator)(h)
	h = RequestIDMiddleware(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleExecute runs the full decision pipeline. Per spec.md §6, the HTTP
// status is 200 for any well-formed transport exchange; allow/deny lives
// entirely in the response body's decision_type. Non-200 is reserved for
// genuine transport faults (wrong method, oversized body) outside gate
// control, never for a policy denial.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBody {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	decision := s.orchestrator.Execute(r.Context(), body)
	s.logger.Info("execute", "transport_request_id", RequestIDFromContext(r.Context()),
		"subject", SubjectFromContext(r.Context()), "decision_type", decision.DecisionType, "reason_code", decision.ReasonCode)

	out, err := canonical.JCS(decision)
	if err != nil {
		s.logger.Error("failed to canonicalize decision", "error", err, "request_id", RequestIDFromContext(r.Context()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
