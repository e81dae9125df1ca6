package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// embeddingsServer fakes the /embeddings endpoint and captures the request
// body for assertions.
func embeddingsServer(t *testing.T, data []map[string]any, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 8, "total_tokens": 8},
		})
	}))
}

func embeddingData(index int, vec []float64) map[string]any {
	return map[string]any{"object": "embedding", "index": index, "embedding": vec}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_RejectsEmptyAPIKey(t *testing.T) {
	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestNew_EmptyModelUsesDefault(t *testing.T) {
	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ModelID() != DefaultModel {
		t.Errorf("ModelID(): got %q, want %q", p.ModelID(), DefaultModel)
	}
}

func TestNew_AcceptsOptions(t *testing.T) {
	_, err := New("sk-test", "text-embedding-3-small",
		WithBaseURL("https://proxy.example.com/v1"),
		WithOrganization("org-123"),
	)
	if err != nil {
		t.Fatalf("New with options: %v", err)
	}
}

// ── Embed ─────────────────────────────────────────────────────────────────────

func TestEmbed_QueryForRetrieval(t *testing.T) {
	var captured map[string]any
	srv := embeddingsServer(t, []map[string]any{
		embeddingData(0, []float64{0.25, -0.5, 1.0}),
	}, &captured)
	defer srv.Close()

	p, err := New("sk-test", "text-embedding-3-small", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Embed(context.Background(), "Fetches current weather for a city.")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.25, -0.5, 1.0}
	if len(got) != len(want) {
		t.Fatalf("vector length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vec[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
	if captured["model"] != "text-embedding-3-small" {
		t.Errorf("request model: got %v", captured["model"])
	}
	if _, ok := captured["dimensions"]; ok {
		t.Error("dimensions must not be sent when no reduction is configured")
	}
}

// ── EmbedBatch ────────────────────────────────────────────────────────────────

// The API documents that batch results may arrive out of order; placement
// must follow the reported index, not response order.
func TestEmbedBatch_PlacesByIndex(t *testing.T) {
	srv := embeddingsServer(t, []map[string]any{
		embeddingData(1, []float64{0, 1}),
		embeddingData(0, []float64{1, 0}),
	}, nil)
	defer srv.Close()

	p, err := New("sk-test", "text-embedding-3-small", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.EmbedBatch(context.Background(), []string{
		"Fetches current weather for a city.",
		"Summarizes a CSV file column by column.",
	})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if got[0][0] != 1 || got[1][1] != 1 {
		t.Errorf("results not placed by index: %v", got)
	}
}

func TestEmbedBatch_CountMismatchFails(t *testing.T) {
	srv := embeddingsServer(t, []map[string]any{
		embeddingData(0, []float64{1, 0}),
	}, nil)
	defer srv.Close()

	p, err := New("sk-test", "text-embedding-3-small", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}

func TestEmbedBatch_EmptyInputSkipsRequest(t *testing.T) {
	p, err := New("sk-test", "text-embedding-3-small", WithBaseURL("http://127.0.0.1:19999"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if got != nil {
		t.Errorf("EmbedBatch(nil): got %v, want nil", got)
	}
}

// ── Dimensions ────────────────────────────────────────────────────────────────

func TestDimensions_NativeWidths(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"some-future-model", 1536},
	}
	for _, tt := range tests {
		p := &Provider{model: tt.model}
		if got := p.Dimensions(); got != tt.want {
			t.Errorf("%s: Dimensions() = %d, want %d", tt.model, got, tt.want)
		}
	}
}

// A configured reduction must both be reported by Dimensions and requested
// from the API, so stored vectors match what the store schema expects.
func TestDimensions_ConfiguredReductionIsRequested(t *testing.T) {
	var captured map[string]any
	srv := embeddingsServer(t, []map[string]any{
		embeddingData(0, []float64{1, 0, 0, 0}),
	}, &captured)
	defer srv.Close()

	p, err := New("sk-test", "text-embedding-3-large",
		WithBaseURL(srv.URL), WithDimensions(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := p.Dimensions(); got != 4 {
		t.Errorf("Dimensions(): got %d, want 4", got)
	}
	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if captured["dimensions"] != float64(4) {
		t.Errorf("request dimensions: got %v, want 4", captured["dimensions"])
	}
}

func TestToFloat32(t *testing.T) {
	in := []float64{1.0, 2.5, -0.5}
	out := toFloat32(in)
	if len(out) != len(in) {
		t.Fatalf("length: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != float32(in[i]) {
			t.Errorf("index %d: got %v, want %v", i, out[i], float32(in[i]))
		}
	}
}
