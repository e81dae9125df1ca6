// Package app wires all toolforge subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithExemplarStore, WithMetrics). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/toolforge/internal/config"
	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/internal/health"
	"github.com/MrWong99/toolforge/internal/observe"
	"github.com/MrWong99/toolforge/internal/pipeline"
	"github.com/MrWong99/toolforge/internal/registry"
	"github.com/MrWong99/toolforge/internal/resilience"
	"github.com/MrWong99/toolforge/internal/server"
	"github.com/MrWong99/toolforge/pkg/exemplar"
	expg "github.com/MrWong99/toolforge/pkg/exemplar/postgres"
	"github.com/MrWong99/toolforge/pkg/provider/embeddings"
	"github.com/MrWong99/toolforge/pkg/provider/llm"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// shutdownTimeout bounds the graceful HTTP drain during Run teardown.
const shutdownTimeout = 10 * time.Second

// NamedLLM pairs an LLM provider with its configured name for failover
// logging.
type NamedLLM struct {
	Name     string
	Provider llm.Provider
}

// Providers holds the externally constructed provider instances. Populated by
// main.go via the config registry. LLM is required; the rest are optional.
type Providers struct {
	// LLM is the primary completion backend.
	LLM NamedLLM

	// Fallbacks are tried in order when the primary fails.
	Fallbacks []NamedLLM

	// Embeddings powers exemplar retrieval. Required when an exemplar store
	// DSN is configured.
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and serves the toolforge HTTP API.
type App struct {
	cfg       *config.Config
	providers *Providers

	backend   llm.Provider
	exemplars exemplar.Store
	metrics   *observe.Metrics
	logLevel  *slog.LevelVar

	// svc is swapped atomically on config hot-reload.
	svc atomic.Pointer[pipeline.Service]

	httpSrv *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithExemplarStore injects an exemplar store instead of connecting to
// PostgreSQL from config.
func WithExemplarStore(s exemplar.Store) Option {
	return func(a *App) { a.exemplars = s }
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the App the level var backing the process logger so
// config hot-reloads can adjust verbosity.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Initialisation is
// synchronous: backend composition, exemplar store connection and HTTP
// handler assembly all happen before New returns.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initBackend(); err != nil {
		return nil, fmt.Errorf("app: init backend: %w", err)
	}
	if err := a.initExemplars(ctx); err != nil {
		return nil, fmt.Errorf("app: init exemplars: %w", err)
	}

	a.svc.Store(a.buildPipeline())
	a.initHTTP()

	return a, nil
}

// initBackend composes the primary LLM with its fallbacks behind per-backend
// circuit breakers. A single configured backend is used directly.
func (a *App) initBackend() error {
	if a.providers == nil || a.providers.LLM.Provider == nil {
		return fmt.Errorf("an LLM provider is required")
	}
	if len(a.providers.Fallbacks) == 0 {
		a.backend = a.providers.LLM.Provider
		return nil
	}

	fb := resilience.NewLLMFallback(a.providers.LLM.Provider, a.providers.LLM.Name, resilience.FallbackConfig{})
	for _, entry := range a.providers.Fallbacks {
		if entry.Provider == nil {
			return fmt.Errorf("fallback %q has no provider instance", entry.Name)
		}
		fb.AddFallback(entry.Name, entry.Provider)
	}
	a.backend = fb
	slog.Info("llm failover enabled",
		"primary", a.providers.LLM.Name, "fallbacks", len(a.providers.Fallbacks))
	return nil
}

// initExemplars connects the pgvector-backed exemplar store, or leaves
// retrieval disabled when no DSN is configured.
func (a *App) initExemplars(ctx context.Context) error {
	if a.exemplars != nil {
		return nil // injected
	}
	dsn := a.cfg.Exemplars.PostgresDSN
	if dsn == "" {
		slog.Info("no exemplar store configured, prompts carry no exemplars")
		return nil
	}
	if a.providers.Embeddings == nil {
		return fmt.Errorf("exemplars.postgres_dsn requires an embeddings provider")
	}
	if want := a.cfg.Exemplars.EmbeddingDimensions; want != 0 && want != a.providers.Embeddings.Dimensions() {
		return fmt.Errorf("embedding_dimensions %d does not match provider dimensions %d",
			want, a.providers.Embeddings.Dimensions())
	}

	store, err := expg.NewStore(ctx, dsn, a.providers.Embeddings)
	if err != nil {
		return err
	}
	a.exemplars = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// buildPipeline assembles a pipeline service from the current config.
func (a *App) buildPipeline() *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithGenerationConfig(a.cfg.Generation),
		pipeline.WithRetrievalTimeout(a.cfg.Exemplars.RetrievalTimeout),
		pipeline.WithMetrics(a.metrics),
	}
	if a.exemplars != nil {
		opts = append(opts, pipeline.WithRetriever(a.exemplars))
	}
	return pipeline.New(a.backend, depcheck.New(registry.Default()), opts...)
}

// initHTTP builds the handler chain and the http.Server.
func (a *App) initHTTP() {
	checkers := []health.Checker{{
		Name: "backend",
		Check: func(context.Context) error {
			if a.backend == nil {
				return errors.New("no backend configured")
			}
			return nil
		},
	}}
	if pinger, ok := a.exemplars.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Checker{
			Name:  "exemplars",
			Check: pinger.Ping,
		})
	}

	srv := server.New(a, health.New(checkers...), a.metrics)
	a.httpSrv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Generate implements [server.Generator] against the current pipeline
// service, so config hot-reloads take effect without restarting the server.
func (a *App) Generate(ctx context.Context, spec *toolspec.Specification) (*pipeline.GeneratedTool, error) {
	return a.svc.Load().Generate(ctx, spec)
}

// AssessFeasibility implements [server.Generator].
func (a *App) AssessFeasibility(spec *toolspec.Specification) (*pipeline.Feasibility, error) {
	return a.svc.Load().AssessFeasibility(spec)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// within [shutdownTimeout]. Returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.httpSrv.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(drainCtx); err != nil {
			slog.Warn("http drain incomplete", "err", err)
		}
		return nil
	})

	return g.Wait()
}

// ApplyConfig applies a hot-reloaded configuration. Only the fields
// [config.Diff] tracks take effect: log level changes adjust the process
// logger, generation changes rebuild the pipeline service. Backend and
// storage changes require a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", string(d.NewLogLevel))
	}
	if d.GenerationChanged {
		a.cfg.Generation = d.NewGeneration
		a.svc.Store(a.buildPipeline())
		slog.Info("generation settings reloaded",
			"max_attempts", d.NewGeneration.MaxAttempts,
			"score_threshold", d.NewGeneration.ScoreThreshold,
			"strict_dependencies", d.NewGeneration.StrictDependencies)
	}
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("http server shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// slogLevel converts a config log level to the slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
