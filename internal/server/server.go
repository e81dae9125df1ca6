// Package server exposes the generation pipeline over HTTP.
//
// Endpoints:
//
//   - POST /api/tools/generate    — run the full pipeline for a YAML tool
//     specification and return the generated tool as JSON.
//   - POST /api/tools/feasibility — assess a specification without invoking
//     the LLM backend.
//   - GET  /healthz, /readyz      — liveness and readiness probes.
//   - GET  /metrics               — Prometheus scrape endpoint.
//
// Request bodies are YAML tool specifications; JSON documents parse too since
// JSON is a YAML subset. All handlers run behind [observe.Middleware], so
// every response carries an X-Correlation-ID header.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/toolforge/internal/health"
	"github.com/MrWong99/toolforge/internal/observe"
	"github.com/MrWong99/toolforge/internal/pipeline"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// maxSpecBytes bounds the request body size for specification documents.
const maxSpecBytes = 1 << 20

// Generator is the pipeline surface the server needs. *pipeline.Service
// satisfies it; tests may substitute their own.
type Generator interface {
	Generate(ctx context.Context, spec *toolspec.Specification) (*pipeline.GeneratedTool, error)
	AssessFeasibility(spec *toolspec.Specification) (*pipeline.Feasibility, error)
}

// Server routes HTTP requests to the generation pipeline.
type Server struct {
	gen     Generator
	handler http.Handler
}

// New assembles the full HTTP handler chain. The health handler may carry
// readiness checkers for the LLM backend and the exemplar store.
func New(gen Generator, h *health.Handler, metrics *observe.Metrics) *Server {
	s := &Server{gen: gen}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tools/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/tools/feasibility", s.handleFeasibility)
	mux.Handle("GET /metrics", promhttp.Handler())
	if h != nil {
		h.Register(mux)
	}

	s.handler = observe.Middleware(metrics)(mux)
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error       string   `json:"error"`
	Phase       string   `json:"phase,omitempty"`
	Attempts    int      `json:"attempts,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}

	tool, err := s.gen.Generate(r.Context(), spec)
	if err != nil {
		s.writeGenerateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}

	f, err := s.gen.AssessFeasibility(spec)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// readSpec decodes and validates the YAML specification body. On failure it
// writes a 400 response and returns ok=false.
func (s *Server) readSpec(w http.ResponseWriter, r *http.Request) (*toolspec.Specification, bool) {
	spec, err := toolspec.ParseYAML(http.MaxBytesReader(w, r.Body, maxSpecBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return spec, true
}

// writeGenerateError maps pipeline failures onto HTTP status codes: caller
// errors are 4xx, exhausted backends are 502, anything else is 500. A client
// that went away gets no response at all.
func (s *Server) writeGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}

	var pe *pipeline.PipelineError
	if !errors.As(err, &pe) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch pe.Phase {
	case pipeline.PhasePrompt:
		status = http.StatusBadRequest
	case pipeline.PhaseDependencies, pipeline.PhaseValidation:
		status = http.StatusUnprocessableEntity
	case pipeline.PhaseGeneration:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, errorResponse{
		Error:       pe.Error(),
		Phase:       string(pe.Phase),
		Attempts:    pe.Attempts,
		Diagnostics: pe.Diagnostics,
	})
}

// writeJSON encodes v with the given status. Falls back to a bare 500 when
// encoding fails mid-body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
