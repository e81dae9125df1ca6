// Package mock is a scriptable [embeddings.Provider] for exemplar-store and
// retrieval tests: tests steer the vector each ingest or query gets and
// assert afterwards which texts were embedded.
//
//	embedder := &mock.Provider{DimensionsValue: 4, ModelIDValue: "test-embed-v1"}
//	embedder.EmbedResult = []float32{1, 0, 0, 0}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/toolforge/pkg/provider/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// EmbedCall records one Embed invocation.
type EmbedCall struct {
	Ctx  context.Context
	Text string
}

// EmbedBatchCall records one EmbedBatch invocation. Texts is a copy.
type EmbedBatchCall struct {
	Ctx   context.Context
	Texts []string
}

// Provider is a scriptable [embeddings.Provider]. The result fields may be
// reassigned between calls; access during concurrent embedding is guarded.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by Embed. Tests typically reassign it before
	// each ingest to place exemplars at known points in the vector space.
	EmbedResult []float32

	// EmbedErr, when set, is returned by Embed instead of EmbedResult.
	EmbedErr error

	// EmbedBatchResult is returned by EmbedBatch. When nil, EmbedBatch
	// repeats EmbedResult once per input text.
	EmbedBatchResult [][]float32

	// EmbedBatchErr, when set, is returned by EmbedBatch.
	EmbedBatchErr error

	// DimensionsValue is returned by Dimensions. The exemplar store checks
	// it against the schema at startup, so tests set it to the test schema's
	// width.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbedCalls records every Embed invocation in order.
	EmbedCalls []EmbedCall

	// EmbedBatchCalls records every EmbedBatch invocation in order.
	EmbedBatchCalls []EmbedBatchCall
}

// Embed records the call and returns EmbedResult or EmbedErr.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, EmbedCall{Ctx: ctx, Text: text})
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.EmbedResult, nil
}

// EmbedBatch records the call and returns EmbedBatchResult or EmbedBatchErr.
// With neither set it repeats EmbedResult for every text, matching a real
// provider's one-vector-per-input contract.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, EmbedBatchCall{Ctx: ctx, Texts: cp})
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	if p.EmbedBatchResult != nil {
		return p.EmbedBatchResult, nil
	}
	result := make([][]float32, len(texts))
	for i := range result {
		result[i] = p.EmbedResult
	}
	return result, nil
}

// Dimensions returns DimensionsValue.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DimensionsValue
}

// ModelID returns ModelIDValue.
func (p *Provider) ModelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelIDValue
}
