// Package health serves the liveness and readiness probes of the generation
// service.
//
//   - GET /healthz — liveness; 200 whenever the process serves HTTP.
//   - GET /readyz  — readiness; 200 only when every registered [Checker]
//     passes. The app registers one checker per dependency the pipeline
//     needs: the LLM backend and, when configured, the exemplar store.
//
// The readiness body reports each check by name with its outcome and
// latency, so a failing probe names the dependency that is down.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check. Slower than this and the
// dependency is treated as down.
const checkTimeout = 5 * time.Second

// Checker probes one dependency of the pipeline. Check returns nil when the
// dependency can serve a generation request.
type Checker struct {
	// Name labels the dependency in the readiness body, e.g. "backend" or
	// "exemplars".
	Name string

	// Check probes the dependency and must respect ctx cancellation.
	Check func(ctx context.Context) error
}

// checkResult is the per-dependency entry in the readiness body.
type checkResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// response is the body of both probe endpoints.
type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves both probes. The checker list is fixed at construction and
// the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler]. Checkers run sequentially in registration order
// on every /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always reports ok; a process that reached the handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz runs every checker and reports 503 when any dependency fails, so
// load balancers stop routing generation requests at a dead backend.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := response{
		Status: "ok",
		Checks: make(map[string]checkResult, len(h.checkers)),
	}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		start := time.Now()
		err := c.Check(ctx)
		elapsed := time.Since(start)
		cancel()

		entry := checkResult{Status: "ok", Latency: elapsed.Round(time.Microsecond).String()}
		if err != nil {
			entry.Status = "fail"
			entry.Error = err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		}
		res.Checks[c.Name] = entry
	}

	writeJSON(w, status, res)
}

// Register adds both probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
