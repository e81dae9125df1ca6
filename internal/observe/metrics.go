// Package observe provides application-wide observability primitives for
// toolforge: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all toolforge metrics.
const meterName = "github.com/MrWong99/toolforge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// GenerationDuration tracks end-to-end tool generation latency, covering
	// all attempts of a single pipeline run.
	GenerationDuration metric.Float64Histogram

	// LLMDuration tracks latency of a single LLM completion call.
	LLMDuration metric.Float64Histogram

	// RetrievalDuration tracks exemplar retrieval latency.
	RetrievalDuration metric.Float64Histogram

	// --- Counters ---

	// GenerationRuns counts completed pipeline runs. Use with attribute:
	//   attribute.String("outcome", ...) — "accepted", "generation_exhausted", ...
	GenerationRuns metric.Int64Counter

	// GenerationAttempts counts individual generate-validate attempts. Use with:
	//   attribute.String("result", ...) — "accepted", "retry", "backend_error"
	GenerationAttempts metric.Int64Counter

	// ValidationFailures counts structural validation errors by check. Use with:
	//   attribute.String("check", ...)
	ValidationFailures metric.Int64Counter

	// BackendErrors counts LLM backend errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	BackendErrors metric.Int64Counter

	// --- Score distribution ---

	// PatternScore tracks the style conformance score of accepted tools.
	PatternScore metric.Float64Histogram

	// --- Gauges ---

	// ActiveGenerations tracks the number of in-flight pipeline runs.
	ActiveGenerations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM-backed generation latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// scoreBuckets covers the 0..100 style score range in steps of ten.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GenerationDuration, err = m.Float64Histogram("toolforge.generation.duration",
		metric.WithDescription("End-to-end tool generation latency across all attempts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("toolforge.llm.duration",
		metric.WithDescription("Latency of a single LLM completion call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("toolforge.retrieval.duration",
		metric.WithDescription("Latency of exemplar retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.GenerationRuns, err = m.Int64Counter("toolforge.generation.runs",
		metric.WithDescription("Total pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.GenerationAttempts, err = m.Int64Counter("toolforge.generation.attempts",
		metric.WithDescription("Total generate-validate attempts by result."),
	); err != nil {
		return nil, err
	}
	if met.ValidationFailures, err = m.Int64Counter("toolforge.validation.failures",
		metric.WithDescription("Total structural validation errors by check."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("toolforge.backend.errors",
		metric.WithDescription("Total LLM backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Score distribution.
	if met.PatternScore, err = m.Float64Histogram("toolforge.pattern.score",
		metric.WithDescription("Style conformance score of accepted tools."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveGenerations, err = m.Int64UpDownCounter("toolforge.active_generations",
		metric.WithDescription("Number of in-flight pipeline runs."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("toolforge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRun records a completed pipeline run with its outcome.
func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	m.GenerationRuns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordAttempt records a single generate-validate attempt with its result.
func (m *Metrics) RecordAttempt(ctx context.Context, result string) {
	m.GenerationAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordValidationFailure records one structural validation error by check name.
func (m *Metrics) RecordValidationFailure(ctx context.Context, check string) {
	m.ValidationFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("check", check)),
	)
}

// RecordBackendError records an LLM backend error.
func (m *Metrics) RecordBackendError(ctx context.Context, provider, kind string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
