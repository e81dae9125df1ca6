package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/toolforge/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":8080"
  log_level: info
llm:
  primary:
    name: openai
    api_key: sk-test
    model: gpt-4o
  fallbacks:
    - name: ollama
      model: llama3
embeddings:
  name: openai
  api_key: sk-test
  model: text-embedding-3-small
exemplars:
  postgres_dsn: "postgres://localhost/toolforge"
  embedding_dimensions: 1536
  retrieval_timeout: 2s
generation:
  max_attempts: 5
  strict_dependencies: true
  score_threshold: 80
  max_exemplars: 2
  temperature: 0.2
  max_tokens: 4096
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.LLM.Primary.Model != "gpt-4o" {
		t.Errorf("llm.primary.model: got %q", cfg.LLM.Primary.Model)
	}
	if len(cfg.LLM.Fallbacks) != 1 || cfg.LLM.Fallbacks[0].Name != "ollama" {
		t.Errorf("llm.fallbacks: got %+v", cfg.LLM.Fallbacks)
	}
	if cfg.Exemplars.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions: got %d", cfg.Exemplars.EmbeddingDimensions)
	}
	if cfg.Exemplars.RetrievalTimeout != 2*time.Second {
		t.Errorf("retrieval_timeout: got %v", cfg.Exemplars.RetrievalTimeout)
	}
	if cfg.Generation.MaxAttempts != 5 {
		t.Errorf("max_attempts: got %d", cfg.Generation.MaxAttempts)
	}
	if !cfg.Generation.StrictDependencies {
		t.Error("strict_dependencies: got false, want true")
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	minimal := `
llm:
  primary:
    name: openai
    model: gpt-4o
`
	cfg, err := config.LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.MaxAttempts != 3 {
		t.Errorf("default max_attempts: got %d, want 3", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.ScoreThreshold != 70 {
		t.Errorf("default score_threshold: got %d, want 70", cfg.Generation.ScoreThreshold)
	}
	if cfg.Generation.MaxExemplars != 3 {
		t.Errorf("default max_exemplars: got %d, want 3", cfg.Generation.MaxExemplars)
	}
	if cfg.Generation.ExemplarLength != 600 {
		t.Errorf("default exemplar_length: got %d, want 600", cfg.Generation.ExemplarLength)
	}
	if cfg.Exemplars.RetrievalTimeout != 5*time.Second {
		t.Errorf("default retrieval_timeout: got %v, want 5s", cfg.Exemplars.RetrievalTimeout)
	}
	if cfg.Generation.StrictDependencies {
		t.Error("strict_dependencies should default to false")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader(`
llm:
  primary:
    name: openai
    model: gpt-4o
unknown_section:
  foo: bar
`))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("llm: [unclosed"))
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Primary.Name != "openai" {
		t.Errorf("llm.primary.name: got %q", cfg.LLM.Primary.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
