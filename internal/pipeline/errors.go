package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// BackendKind classifies a transient LLM backend failure.
type BackendKind string

const (
	KindTimeout           BackendKind = "timeout"
	KindRateLimit         BackendKind = "rate_limit"
	KindMalformedResponse BackendKind = "malformed_response"
	KindOther             BackendKind = "other"
)

// BackendError is a retryable failure of a single LLM call: the backend
// timed out, rate-limited the request, or returned a completion that does not
// follow the expected output schema. The pipeline consumes one attempt per
// BackendError and tries again until attempts are exhausted.
type BackendError struct {
	// Kind classifies the failure.
	Kind BackendKind

	// Attempt is the 1-based attempt number that produced this error.
	Attempt int

	// Err is the underlying cause. May be nil for malformed responses.
	Err error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend error (%s, attempt %d): %v", e.Kind, e.Attempt, e.Err)
	}
	return fmt.Sprintf("backend error (%s, attempt %d)", e.Kind, e.Attempt)
}

func (e *BackendError) Unwrap() error { return e.Err }

// classifyBackendErr derives a [BackendKind] from an arbitrary provider error.
func classifyBackendErr(err error) BackendKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return KindTimeout
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return KindRateLimit
	default:
		return KindOther
	}
}

// Phase names the pipeline stage a terminal failure belongs to.
type Phase string

const (
	// PhasePrompt covers specification and prompt construction failures.
	// These are caller errors and consume no attempts.
	PhasePrompt Phase = "prompt"

	// PhaseDependencies covers strict-mode dependency refusals issued before
	// any backend call.
	PhaseDependencies Phase = "dependencies"

	// PhaseGeneration means every attempt ended in a backend error.
	PhaseGeneration Phase = "generation"

	// PhaseValidation means the final attempt produced code that failed
	// structural validation.
	PhaseValidation Phase = "validation"
)

// PipelineError is the terminal error of a pipeline run. It names the phase
// that exhausted the attempt budget and carries the final diagnostic list so
// callers can report why generation failed.
type PipelineError struct {
	// Phase is the stage that caused the terminal failure.
	Phase Phase

	// Attempts is the number of backend calls consumed.
	Attempts int

	// Diagnostics holds the final attempt's error messages.
	Diagnostics []string

	// Err is the underlying cause where one exists.
	Err error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("pipeline failed in %s phase after %d attempt(s)", e.Phase, e.Attempts)
	if len(e.Diagnostics) > 0 {
		msg += ": " + strings.Join(e.Diagnostics, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// AsPipelineError unwraps err into a *PipelineError if one is in the chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
