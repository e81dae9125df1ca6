package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/toolforge/pkg/provider/llm"
	llmmock "github.com/MrWong99/toolforge/pkg/provider/llm/mock"
)

// completeThrough drives the mock backend through the breaker the way
// LLMFallback does.
func completeThrough(cb *CircuitBreaker, backend *llmmock.Provider) error {
	return cb.Execute(func() error {
		_, err := backend.Complete(context.Background(), llm.CompletionRequest{
			Messages: []llm.Message{{Role: "user", Content: "Generate a weather tool."}},
		})
		return err
	})
}

func scriptFailures(n int, err error) []llmmock.ScriptEntry {
	entries := make([]llmmock.ScriptEntry, n)
	for i := range entries {
		entries[i] = llmmock.ScriptEntry{Err: err}
	}
	return entries
}

func TestNewCircuitBreaker_LLMDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "openai"})
	if cb.maxFailures != 3 {
		t.Errorf("maxFailures = %d, want 3", cb.maxFailures)
	}
	if cb.resetTimeout != 20*time.Second {
		t.Errorf("resetTimeout = %v, want 20s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 2 {
		t.Errorf("halfOpenMax = %d, want 2", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveBackendFailures(t *testing.T) {
	backendErr := errors.New("anyllm: completion rate limit: 429")
	backend := &llmmock.Provider{Script: scriptFailures(3, backendErr)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "openai"})

	// Default threshold is three strikes.
	for i := 0; i < 3; i++ {
		if err := completeThrough(cb, backend); !errors.Is(err, backendErr) {
			t.Fatalf("call %d: got %v, want backend error", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures: %v, want open", cb.State())
	}

	// The open breaker must shed the call before it reaches the backend.
	calls := len(backend.CompleteCalls)
	err := completeThrough(cb, backend)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker: got %v, want ErrCircuitOpen", err)
	}
	if !strings.Contains(err.Error(), `"openai"`) {
		t.Errorf("rejection must name the backend: %q", err)
	}
	if len(backend.CompleteCalls) != calls {
		t.Errorf("open breaker still reached the backend: %d calls, want %d",
			len(backend.CompleteCalls), calls)
	}
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	backendErr := errors.New("anyllm: completion timeout")
	backend := &llmmock.Provider{Script: []llmmock.ScriptEntry{
		{Err: backendErr},
		{Err: backendErr},
		{Response: &llm.CompletionResponse{Content: "class WeatherTool(BaseTool): ..."}},
		{Err: backendErr},
		{Err: backendErr},
	}}
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "openai", MaxFailures: 3})

	for i := 0; i < 5; i++ {
		_ = completeThrough(cb, backend)
	}
	// Two failures, a success, two failures: the streak never reaches three.
	if cb.State() != StateClosed {
		t.Errorf("state: %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	backendErr := errors.New("anyllm: completion timeout")
	backend := &llmmock.Provider{Script: append(
		scriptFailures(2, backendErr),
		llmmock.ScriptEntry{Response: &llm.CompletionResponse{Content: "ok"}},
	)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ollama",
		MaxFailures:  2,
		ResetTimeout: 20 * time.Millisecond,
		HalfOpenMax:  2,
	})

	for i := 0; i < 2; i++ {
		_ = completeThrough(cb, backend)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state: %v, want open", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after reset timeout: %v, want half-open", cb.State())
	}

	// Both probes must succeed before the breaker closes again.
	if err := completeThrough(cb, backend); err != nil {
		t.Fatalf("first probe: %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after one clean probe: %v, want still half-open", cb.State())
	}
	if err := completeThrough(cb, backend); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state after clean probes: %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopensImmediately(t *testing.T) {
	backendErr := errors.New("anyllm: completion timeout")
	backend := &llmmock.Provider{Script: scriptFailures(3, backendErr)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ollama",
		MaxFailures:  2,
		ResetTimeout: 20 * time.Millisecond,
		HalfOpenMax:  2,
	})

	for i := 0; i < 2; i++ {
		_ = completeThrough(cb, backend)
	}
	time.Sleep(30 * time.Millisecond)

	// One failed probe is enough evidence the backend is still down.
	if err := completeThrough(cb, backend); !errors.Is(err, backendErr) {
		t.Fatalf("probe: got %v, want backend error", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state after failed probe: %v, want open", cb.State())
	}

	calls := len(backend.CompleteCalls)
	if err := completeThrough(cb, backend); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("after failed probe: got %v, want ErrCircuitOpen", err)
	}
	if len(backend.CompleteCalls) != calls {
		t.Error("re-opened breaker still reached the backend")
	}
}

func TestCircuitBreaker_HalfOpenAdmitsLimitedProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "openai",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  1,
	})
	_ = cb.Execute(func() error { return errors.New("down") })
	time.Sleep(20 * time.Millisecond)

	// The single permitted probe slot is held while its call is in flight;
	// a second call must be rejected, not forwarded to the backend.
	entered := make(chan struct{})
	release := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		probeDone <- cb.Execute(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("call during in-flight probe: got %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-probeDone; err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestCircuitBreaker_ResetForcesClosed(t *testing.T) {
	backendErr := errors.New("backend down")
	backend := &llmmock.Provider{Script: scriptFailures(2, backendErr)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "openai", MaxFailures: 2, ResetTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		_ = completeThrough(cb, backend)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state: %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after Reset: %v, want closed", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("call after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
