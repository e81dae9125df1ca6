package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/toolforge/internal/config"
	"github.com/MrWong99/toolforge/internal/pipeline"
	exmock "github.com/MrWong99/toolforge/pkg/exemplar/mock"
	"github.com/MrWong99/toolforge/pkg/provider/llm"
	llmmock "github.com/MrWong99/toolforge/pkg/provider/llm/mock"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

const toolCode = `"""Echo tool module."""
from crewai.tools import BaseTool
from pydantic import BaseModel, Field


class EchoInput(BaseModel):
    """Echo input."""
    text: str = Field(..., description="Text to echo")


class EchoTool(BaseTool):
    """Returns its input unchanged."""
    name: str = "echo"
    description: str = "Returns its input unchanged."
    args_schema = EchoInput

    def _run(self, text: str) -> str:
        """Echo the text back."""
        try:
            return text
        except Exception as exc:
            return f"echo failed: {exc}"
`

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.LLM.Primary = config.ProviderEntry{Name: "openai", Model: "gpt-4o"}
	cfg.Generation = config.GenerationConfig{
		MaxAttempts:    3,
		ScoreThreshold: 70,
		MaxExemplars:   3,
		ExemplarLength: 600,
	}
	cfg.Exemplars.RetrievalTimeout = time.Second
	return cfg
}

func echoSpec() *toolspec.Specification {
	return &toolspec.Specification{
		Name:        "echo",
		Description: "Returns its input unchanged.",
		Inputs: []toolspec.Parameter{
			{Name: "text", Type: toolspec.TypeString, Required: true, Description: "Text to echo"},
		},
	}
}

func newTestApp(t *testing.T, mock *llmmock.Provider, opts ...Option) *App {
	t.Helper()
	providers := &Providers{LLM: NamedLLM{Name: "mock", Provider: mock}}
	opts = append([]Option{WithExemplarStore(&exmock.Store{})}, opts...)
	a, err := New(context.Background(), testConfig(), providers, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_RequiresLLMProvider(t *testing.T) {
	_, err := New(context.Background(), testConfig(), &Providers{})
	if err == nil {
		t.Fatal("New must fail without an LLM provider")
	}
}

func TestNew_ExemplarDSNRequiresEmbeddings(t *testing.T) {
	cfg := testConfig()
	cfg.Exemplars.PostgresDSN = "postgres://localhost/toolforge"

	providers := &Providers{LLM: NamedLLM{Name: "mock", Provider: &llmmock.Provider{}}}
	_, err := New(context.Background(), cfg, providers)
	if err == nil {
		t.Fatal("New must fail when a DSN is set without an embeddings provider")
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	mock := &llmmock.Provider{Script: []llmmock.ScriptEntry{
		{Response: &llm.CompletionResponse{Content: "```python\n" + toolCode + "```"}},
	}}
	a := newTestApp(t, mock)

	tool, err := a.Generate(context.Background(), echoSpec())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if tool.ClassName != "EchoTool" || tool.Attempts != 1 {
		t.Errorf("tool = %q attempts %d", tool.ClassName, tool.Attempts)
	}
}

func TestAssessFeasibility(t *testing.T) {
	a := newTestApp(t, &llmmock.Provider{})

	f, err := a.AssessFeasibility(echoSpec())
	if err != nil {
		t.Fatalf("AssessFeasibility: %v", err)
	}
	if f.Confidence != pipeline.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", f.Confidence)
	}
}

func TestApplyConfig_ReloadsGenerationSettings(t *testing.T) {
	mock := &llmmock.Provider{Script: []llmmock.ScriptEntry{
		{Err: errors.New("backend down")},
	}}
	a := newTestApp(t, mock)

	old := testConfig()
	reloaded := testConfig()
	reloaded.Generation.MaxAttempts = 1
	a.ApplyConfig(old, reloaded)

	_, err := a.Generate(context.Background(), echoSpec())
	pe, ok := pipeline.AsPipelineError(err)
	if !ok {
		t.Fatalf("error = %v, want *PipelineError", err)
	}
	if pe.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 after reload", pe.Attempts)
	}
	if got := len(mock.CompleteCalls); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestApplyConfig_AdjustsLogLevel(t *testing.T) {
	var lv slog.LevelVar
	lv.Set(slog.LevelInfo)
	a := newTestApp(t, &llmmock.Provider{}, WithLogLevelVar(&lv))

	old := testConfig()
	reloaded := testConfig()
	reloaded.Server.LogLevel = config.LogDebug
	a.ApplyConfig(old, reloaded)

	if lv.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", lv.Level())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newTestApp(t, &llmmock.Provider{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	a := newTestApp(t, &llmmock.Provider{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
