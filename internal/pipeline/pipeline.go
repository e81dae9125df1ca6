// Package pipeline orchestrates tool generation: it validates the requested
// dependencies, retrieves exemplars, builds the prompt, invokes the LLM
// backend, validates the returned code and retries with targeted feedback
// until the code is accepted or the attempt budget is exhausted.
//
// A run is an explicit state machine:
//
//	Building -> Invoking -> Validating -> Accepted
//	                |            |
//	                +-> Retrying <+
//	                       |
//	                       +-> Building (attempts left)
//	                       +-> Failed   (budget exhausted)
//
// Backend errors and validation failures both consume an attempt. Retries
// after a validation failure rebuild the prompt with the previous attempt's
// errors embedded verbatim; retries after a backend error reuse the same
// prompt content.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/toolforge/internal/config"
	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/internal/docgen"
	"github.com/MrWong99/toolforge/internal/observe"
	"github.com/MrWong99/toolforge/internal/patternscore"
	"github.com/MrWong99/toolforge/internal/prompt"
	"github.com/MrWong99/toolforge/internal/validate"
	"github.com/MrWong99/toolforge/pkg/exemplar"
	"github.com/MrWong99/toolforge/pkg/provider/llm"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// State is one step of the generation state machine.
type State string

const (
	StateBuilding   State = "building"
	StateInvoking   State = "invoking"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
	StateRetrying   State = "retrying"
	StateFailed     State = "failed"
)

// GeneratedTool is the artifact of an accepted pipeline run.
type GeneratedTool struct {
	// Name is the spec's tool name.
	Name string `json:"name"`

	// ClassName is the Python class name of the generated tool.
	ClassName string `json:"class_name"`

	// Code is the validated Python source of the tool module.
	Code string `json:"code"`

	// Documentation is the prose the model returned alongside the code.
	Documentation string `json:"documentation,omitempty"`

	// UsageDoc is the rendered markdown usage document.
	UsageDoc string `json:"usage_doc"`

	// Requirements is the rendered requirements.txt content. Empty when the
	// tool needs no external packages.
	Requirements string `json:"requirements,omitempty"`

	// Dependencies is the verdict for the imports the accepted code actually
	// makes, which may differ from what the spec declared.
	Dependencies depcheck.Verdict `json:"dependencies"`

	// Validation is the structural validation result of the accepted code.
	Validation validate.Result `json:"validation"`

	// Pattern is the style conformance score of the accepted code.
	Pattern patternscore.Result `json:"pattern"`

	// Attempts is the number of backend calls this run consumed.
	Attempts int `json:"attempts"`

	// Usage is the accumulated token usage across all attempts.
	Usage llm.Usage `json:"usage"`
}

// Service runs the generation pipeline. It is stateless between runs and safe
// for concurrent use.
type Service struct {
	provider  llm.Provider
	deps      *depcheck.Validator
	retriever exemplar.Retriever
	metrics   *observe.Metrics

	prompts   *prompt.Builder
	validator *validate.Validator
	scorer    *patternscore.Scorer

	cfg              config.GenerationConfig
	retrievalTimeout time.Duration
}

// Option adjusts a [Service].
type Option func(*Service)

// WithRetriever enables exemplar retrieval. Without it prompts carry no
// exemplars.
func WithRetriever(r exemplar.Retriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithRetrievalTimeout bounds each exemplar retrieval. On timeout the run
// proceeds without exemplars.
func WithRetrievalTimeout(d time.Duration) Option {
	return func(s *Service) { s.retrievalTimeout = d }
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithGenerationConfig overrides the generation settings.
func WithGenerationConfig(cfg config.GenerationConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

// New builds a [Service] around the given backend and dependency validator.
func New(provider llm.Provider, deps *depcheck.Validator, opts ...Option) *Service {
	s := &Service{
		provider:         provider,
		deps:             deps,
		retrievalTimeout: 5 * time.Second,
	}
	s.cfg = config.GenerationConfig{
		MaxAttempts:    3,
		ScoreThreshold: patternscore.DefaultThreshold,
		MaxExemplars:   prompt.DefaultMaxExemplars,
		ExemplarLength: prompt.DefaultExemplarLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxAttempts < 1 {
		s.cfg.MaxAttempts = 1
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.prompts = prompt.New(
		prompt.WithMaxExemplars(s.cfg.MaxExemplars),
		prompt.WithExemplarLength(s.cfg.ExemplarLength),
	)
	s.validator = validate.New()
	s.scorer = patternscore.New(patternscore.WithThreshold(s.cfg.ScoreThreshold))
	return s
}

// Generate runs the full pipeline for spec. On success the returned tool
// carries validated code, documentation and deployment metadata. Terminal
// failures are reported as a [*PipelineError]; context cancellation aborts
// the run immediately and surfaces the context error.
func (s *Service) Generate(ctx context.Context, spec *toolspec.Specification) (*GeneratedTool, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.generate")
	defer span.End()

	log := observe.Logger(ctx)
	start := time.Now()
	s.metrics.ActiveGenerations.Add(ctx, 1)
	outcome := "failed"
	defer func() {
		s.metrics.ActiveGenerations.Add(ctx, -1)
		s.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())
		s.metrics.RecordRun(ctx, outcome)
	}()

	// Reject malformed specs before anything costs a network round-trip.
	if err := checkSpec(spec); err != nil {
		outcome = "invalid_spec"
		return nil, &PipelineError{Phase: PhasePrompt, Err: err}
	}

	verdict := s.deps.Validate(specDependencies(spec), s.cfg.StrictDependencies)
	if !verdict.CanProceed {
		outcome = "dependencies_blocked"
		log.Warn("generation refused: unsupported dependencies in strict mode",
			"tool", specName(spec), "unsupported", verdict.Unsupported)
		perr := &PipelineError{
			Phase:       PhaseDependencies,
			Diagnostics: verdict.Warnings,
		}
		observe.Fail(span, perr)
		return nil, perr
	}

	exemplars := s.retrieveExemplars(ctx, spec)

	var (
		state       = StateBuilding
		attempts    int
		priorErrors []string
		lastPhase   Phase
		diagnostics []string
		lastErr     error
		promptText  string
		code        string
		docText     string
		valRes      validate.Result
		usage       llm.Usage
	)

	for {
		switch state {
		case StateBuilding:
			p, err := s.prompts.Build(spec, verdict, exemplars, priorErrors)
			if err != nil {
				outcome = "invalid_spec"
				return nil, &PipelineError{Phase: PhasePrompt, Err: err}
			}
			promptText = p
			state = StateInvoking

		case StateInvoking:
			attempts++
			resp, err := s.invoke(ctx, promptText)
			if err != nil {
				if ctx.Err() != nil {
					outcome = "cancelled"
					return nil, fmt.Errorf("pipeline: generation aborted: %w", ctx.Err())
				}
				berr := &BackendError{Kind: classifyBackendErr(err), Attempt: attempts, Err: err}
				s.metrics.RecordBackendError(ctx, "llm", string(berr.Kind))
				s.metrics.RecordAttempt(ctx, "backend_error")
				log.Warn("backend call failed", "tool", specName(spec),
					"attempt", attempts, "kind", string(berr.Kind), "error", err)
				lastPhase, diagnostics, lastErr = PhaseGeneration, []string{err.Error()}, berr
				state = StateRetrying
				continue
			}
			usage.PromptTokens += resp.Usage.PromptTokens
			usage.CompletionTokens += resp.Usage.CompletionTokens
			usage.TotalTokens += resp.Usage.TotalTokens

			c, d, ok := splitResponse(resp.Content)
			if !ok {
				berr := &BackendError{Kind: KindMalformedResponse, Attempt: attempts}
				s.metrics.RecordBackendError(ctx, "llm", string(KindMalformedResponse))
				s.metrics.RecordAttempt(ctx, "backend_error")
				log.Warn("backend returned no python code block",
					"tool", specName(spec), "attempt", attempts)
				lastPhase = PhaseGeneration
				diagnostics = []string{"response contained no ```python code block"}
				lastErr = berr
				state = StateRetrying
				continue
			}
			code, docText = c, d
			state = StateValidating

		case StateValidating:
			res := s.validator.Validate(code, spec, verdict)
			if res.IsValid {
				valRes = res
				state = StateAccepted
				continue
			}
			for _, e := range res.Errors {
				s.metrics.RecordValidationFailure(ctx, e)
			}
			s.metrics.RecordAttempt(ctx, "retry")
			log.Info("generated code failed validation", "tool", specName(spec),
				"attempt", attempts, "errors", len(res.Errors))
			priorErrors = res.Errors
			lastPhase, diagnostics, lastErr = PhaseValidation, res.Errors, nil
			state = StateRetrying

		case StateRetrying:
			if attempts >= s.cfg.MaxAttempts {
				state = StateFailed
				continue
			}
			state = StateBuilding

		case StateAccepted:
			s.metrics.RecordAttempt(ctx, "accepted")
			tool := s.accept(ctx, spec, verdict, valRes, code, docText, attempts, usage)
			outcome = "accepted"
			return tool, nil

		case StateFailed:
			switch lastPhase {
			case PhaseGeneration:
				outcome = "generation_exhausted"
			default:
				outcome = "validation_exhausted"
			}
			log.Warn("generation exhausted", "tool", specName(spec),
				"attempts", attempts, "phase", string(lastPhase))
			perr := &PipelineError{
				Phase:       lastPhase,
				Attempts:    attempts,
				Diagnostics: diagnostics,
				Err:         lastErr,
			}
			observe.Fail(span, perr)
			return nil, perr
		}
	}
}

// invoke performs a single completion call and records its latency.
func (s *Service) invoke(ctx context.Context, promptText string) (*llm.CompletionResponse, error) {
	callStart := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: promptText}},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	s.metrics.LLMDuration.Record(ctx, time.Since(callStart).Seconds())
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, fmt.Errorf("backend returned an empty completion")
	}
	return resp, nil
}

// accept scores the validated code, re-checks its actual imports and
// assembles the final artifact. Validation already passed, so scoring and
// documentation can no longer fail the run.
func (s *Service) accept(ctx context.Context, spec *toolspec.Specification, verdict depcheck.Verdict, valRes validate.Result, code, docText string, attempts int, usage llm.Usage) *GeneratedTool {
	pattern := s.scorer.Score(code)
	s.metrics.PatternScore.Record(ctx, float64(pattern.Score))

	// Requirements must reflect what the code imports, not what the spec
	// asked for. The code already parsed during validation.
	finalVerdict := verdict
	if v, err := s.deps.ValidateImports(code, false); err == nil {
		finalVerdict = v
	}

	tool := &GeneratedTool{
		Name:          spec.Name,
		ClassName:     spec.ClassName(),
		Code:          code,
		Documentation: docText,
		UsageDoc:      docgen.Generate(spec, finalVerdict),
		Requirements:  s.deps.RequirementsTxt(finalVerdict),
		Dependencies:  finalVerdict,
		Validation:    valRes,
		Pattern:       pattern,
		Attempts:      attempts,
		Usage:         usage,
	}

	observe.Logger(ctx).Info("tool generated", "tool", spec.Name,
		"attempts", attempts, "score", pattern.Score,
		"matches_pattern", pattern.MatchesPattern)
	return tool
}

// retrieveExemplars fetches few-shot samples within the retrieval timeout.
// Retrieval is best-effort: any failure degrades to an exemplar-free prompt.
func (s *Service) retrieveExemplars(ctx context.Context, spec *toolspec.Specification) []exemplar.Exemplar {
	if s.retriever == nil || s.cfg.MaxExemplars <= 0 {
		return nil
	}
	rctx := ctx
	if s.retrievalTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, s.retrievalTimeout)
		defer cancel()
	}

	start := time.Now()
	exemplars, err := s.retriever.Retrieve(rctx, spec.Description, s.cfg.MaxExemplars, spec.Category)
	s.metrics.RetrievalDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.Logger(ctx).Warn("exemplar retrieval failed, proceeding without exemplars",
			"tool", specName(spec), "error", err)
		return nil
	}
	return exemplars
}

// checkSpec rejects nil or structurally invalid specifications.
func checkSpec(spec *toolspec.Specification) error {
	if spec == nil {
		return fmt.Errorf("pipeline: specification is nil")
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("pipeline: malformed specification: %w", err)
	}
	return nil
}

func specName(spec *toolspec.Specification) string {
	if spec == nil {
		return ""
	}
	return spec.Name
}

func specDependencies(spec *toolspec.Specification) []string {
	if spec == nil {
		return nil
	}
	return spec.Dependencies
}
