// Package mock provides a test double for the exemplar.Store interface.
//
// Use Store in pipeline tests to feed canned exemplars without a database
// and to verify the queries the pipeline issues.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/toolforge/pkg/exemplar"
)

// RetrieveCall records a single invocation of Retrieve.
type RetrieveCall struct {
	// Ctx is the context passed to Retrieve.
	Ctx context.Context
	// Query is the query string passed to Retrieve.
	Query string
	// K is the requested result count.
	K int
	// Category is the category filter passed to Retrieve.
	Category string
}

// Store is a mock implementation of exemplar.Store.
type Store struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// RetrieveResult is returned by Retrieve. If nil, an empty slice is returned.
	RetrieveResult []exemplar.Exemplar

	// RetrieveErr, if non-nil, is returned as the error from Retrieve.
	RetrieveErr error

	// RetrieveDelay, if non-zero, blocks Retrieve until the delay elapses or
	// the context is cancelled. Use it to exercise retrieval timeouts.
	RetrieveDelay time.Duration

	// IngestErr, if non-nil, is returned as the error from Ingest.
	IngestErr error

	// --- Call records (read after test) ---

	// RetrieveCalls records every invocation of Retrieve in order.
	RetrieveCalls []RetrieveCall

	// Ingested records every exemplar passed to Ingest in order.
	Ingested []exemplar.Exemplar
}

// Retrieve records the call and returns RetrieveResult, RetrieveErr.
func (s *Store) Retrieve(ctx context.Context, query string, k int, category string) ([]exemplar.Exemplar, error) {
	s.mu.Lock()
	s.RetrieveCalls = append(s.RetrieveCalls, RetrieveCall{Ctx: ctx, Query: query, K: k, Category: category})
	delay := s.RetrieveDelay
	result, err := s.RetrieveResult, s.RetrieveErr
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []exemplar.Exemplar{}, nil
	}
	return result, nil
}

// Ingest records the exemplar and returns IngestErr.
func (s *Store) Ingest(ctx context.Context, ex exemplar.Exemplar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Ingested = append(s.Ingested, ex)
	return s.IngestErr
}

// Reset clears all recorded calls. Thread-safe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetrieveCalls = nil
	s.Ingested = nil
}

// Ensure Store implements exemplar.Store at compile time.
var _ exemplar.Store = (*Store)(nil)
