package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/toolforge/pkg/provider/llm"
)

// ErrAllFailed is returned when every backend in an [LLMFallback] fails or has
// an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-backend circuit breaker created for each
// provider in an [LLMFallback].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// backend pairs an LLM provider with its dedicated circuit breaker.
type backend struct {
	name     string
	provider llm.Provider
	breaker  *CircuitBreaker
}

// LLMFallback implements [llm.Provider] with automatic failover across multiple
// LLM backends. Each backend has its own circuit breaker; when the primary fails
// or its breaker is open, the next healthy fallback is tried in registration
// order.
//
// Register all fallbacks before first use; AddFallback is not safe to call
// concurrently with Complete.
type LLMFallback struct {
	backends []backend
	cfg      FallbackConfig
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
// Additional backends are registered via [LLMFallback.AddFallback].
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	f := &LLMFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional LLM provider as a fallback. Fallbacks are
// tried in the order they are added, after the primary.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.add(name, provider)
}

func (f *LLMFallback) add(name string, provider llm.Provider) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.backends = append(f.backends, backend{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cbCfg),
	})
}

// Complete sends the request to the first healthy backend and returns its
// response. Backends with an open breaker are skipped; if every backend fails
// the error wraps [ErrAllFailed] with the last underlying error.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return execute(f, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens delegates to the first healthy backend's token counter.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	return execute(f, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// Capabilities returns the capabilities of the primary backend. This does not
// participate in failover because capabilities are static metadata.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	if len(f.backends) > 0 {
		return f.backends[0].provider.Capabilities()
	}
	return llm.ModelCapabilities{}
}

// execute tries fn against each backend in order until one succeeds.
func execute[R any](f *LLMFallback, fn func(llm.Provider) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range f.backends {
		b := &f.backends[i]
		var result R
		err := b.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(b.provider)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping llm backend (circuit open)", "provider", b.name)
		} else {
			slog.Warn("llm backend failed, trying next",
				"provider", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
