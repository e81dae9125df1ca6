package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "openai-native", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in zero-valued generation and retrieval settings.
func ApplyDefaults(cfg *Config) {
	if cfg.Generation.MaxAttempts == 0 {
		cfg.Generation.MaxAttempts = 3
	}
	if cfg.Generation.ScoreThreshold == 0 {
		cfg.Generation.ScoreThreshold = 70
	}
	if cfg.Generation.MaxExemplars == 0 {
		cfg.Generation.MaxExemplars = 3
	}
	if cfg.Generation.ExemplarLength == 0 {
		cfg.Generation.ExemplarLength = 600
	}
	if cfg.Exemplars.RetrievalTimeout == 0 {
		cfg.Exemplars.RetrievalTimeout = 5 * time.Second
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.LLM.Primary.Name)
	for _, fb := range cfg.LLM.Fallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("embeddings", cfg.Embeddings.Name)

	// LLM availability
	if cfg.LLM.Primary.Name == "" {
		errs = append(errs, errors.New("llm.primary.name is required"))
	}
	if cfg.LLM.Primary.Name != "" && cfg.LLM.Primary.Model == "" {
		errs = append(errs, errors.New("llm.primary.model is required"))
	}
	for i, fb := range cfg.LLM.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("llm.fallbacks[%d].name is required", i))
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("llm.fallbacks[%d].model is required", i))
		}
	}

	// Exemplars ↔ embeddings
	if cfg.Exemplars.PostgresDSN != "" {
		if cfg.Embeddings.Name == "" {
			errs = append(errs, errors.New("exemplars.postgres_dsn is set but embeddings is not configured"))
		}
		if cfg.Exemplars.EmbeddingDimensions <= 0 {
			errs = append(errs, errors.New("exemplars.embedding_dimensions must be positive when the exemplar store is enabled"))
		}
	}
	if cfg.Exemplars.PostgresDSN == "" {
		slog.Warn("exemplars.postgres_dsn is empty; generation will run without few-shot exemplars")
	}

	// Generation bounds
	if cfg.Generation.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("generation.max_attempts %d must be at least 1", cfg.Generation.MaxAttempts))
	}
	if cfg.Generation.ScoreThreshold < 0 || cfg.Generation.ScoreThreshold > 100 {
		errs = append(errs, fmt.Errorf("generation.score_threshold %d is out of range [0, 100]", cfg.Generation.ScoreThreshold))
	}
	if cfg.Generation.MaxExemplars < 0 {
		errs = append(errs, fmt.Errorf("generation.max_exemplars %d must not be negative", cfg.Generation.MaxExemplars))
	}
	if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature %.2f is out of range [0, 2]", cfg.Generation.Temperature))
	}

	// TLS completeness
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
