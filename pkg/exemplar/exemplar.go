// Package exemplar defines retrieval of previously stored tool code samples
// used as few-shot context during generation. Implementations live in
// subpackages; consumers depend only on the [Retriever] interface.
package exemplar

import "context"

// Exemplar is one stored code sample with its retrieval similarity.
type Exemplar struct {
	// Name identifies the sample, e.g. the tool name it was generated for.
	Name string `json:"name"`

	// Category is the coarse tool category the sample belongs to.
	Category string `json:"category"`

	// Description is a short summary of what the sample does.
	Description string `json:"description"`

	// Code is the full Python source of the sample.
	Code string `json:"code"`

	// Similarity is the retrieval score in [0, 1], 1 meaning identical.
	Similarity float64 `json:"similarity"`
}

// Retriever finds the k most similar exemplars for a query. category narrows
// the search when non-empty. Retrieval is an optimization: callers must treat
// an error or empty result as "no exemplars" and proceed without them.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, category string) ([]Exemplar, error)
}

// Store persists exemplars for later retrieval. Storing an exemplar with an
// existing name replaces it.
type Store interface {
	Retriever

	Ingest(ctx context.Context, ex Exemplar) error
}
