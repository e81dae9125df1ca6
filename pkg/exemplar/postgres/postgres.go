// Package postgres provides a PostgreSQL-backed exemplar store.
//
// Exemplars are stored with a pgvector embedding of their description and
// code so retrieval can rank them by cosine similarity to a query. The
// pgvector extension must be available in the target database; [NewStore]
// installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, embedder)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Ingest(ctx, ex)
//	hits, _ := store.Retrieve(ctx, "fetch weather data over HTTP", 3, "http_client")
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/toolforge/pkg/exemplar"
	"github.com/MrWong99/toolforge/pkg/provider/embeddings"
)

// Compile-time interface check.
var _ exemplar.Store = (*Store)(nil)

// ddl returns the exemplars DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddl(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS exemplars (
    name        TEXT         PRIMARY KEY,
    category    TEXT         NOT NULL DEFAULT '',
    description TEXT         NOT NULL DEFAULT '',
    code        TEXT         NOT NULL,
    embedding   vector(%d),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_exemplars_category
    ON exemplars (category);

CREATE INDEX IF NOT EXISTS idx_exemplars_embedding
    ON exemplars USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the exemplars table and the pgvector extension
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model. Changing this value after the first migration requires a
// manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddl(embeddingDimensions)); err != nil {
		return fmt.Errorf("exemplar store: migrate: %w", err)
	}
	return nil
}

// Store is a PostgreSQL-backed [exemplar.Store]. It embeds exemplar text with
// the configured [embeddings.Provider] on ingest and embeds queries with the
// same provider on retrieval, so both live in the same vector space.
//
// All operations are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// NewStore connects to the PostgreSQL database at dsn, registers pgvector
// types on every connection, and runs [Migrate] with the embedder's
// dimensionality.
func NewStore(ctx context.Context, dsn string, embedder embeddings.Provider) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("exemplar store: embedder must not be nil")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("exemplar store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("exemplar store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exemplar store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, embedder: embedder}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Ingest embeds the exemplar and upserts it by name. An existing exemplar
// with the same name is completely replaced.
func (s *Store) Ingest(ctx context.Context, ex exemplar.Exemplar) error {
	if ex.Name == "" {
		return fmt.Errorf("exemplar store: ingest: name must not be empty")
	}

	emb, err := s.embedder.Embed(ctx, embeddingText(ex))
	if err != nil {
		return fmt.Errorf("exemplar store: embed %q: %w", ex.Name, err)
	}

	const q = `
		INSERT INTO exemplars
		    (name, category, description, code, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
		    category    = EXCLUDED.category,
		    description = EXCLUDED.description,
		    code        = EXCLUDED.code,
		    embedding   = EXCLUDED.embedding,
		    updated_at  = now()`

	_, err = s.pool.Exec(ctx, q,
		ex.Name,
		ex.Category,
		ex.Description,
		ex.Code,
		pgvector.NewVector(emb),
	)
	if err != nil {
		return fmt.Errorf("exemplar store: ingest %q: %w", ex.Name, err)
	}
	return nil
}

// Retrieve embeds the query and returns the k nearest exemplars by cosine
// distance, most similar first. A non-empty category restricts the search to
// that category. Similarity is reported as 1 - cosine distance.
func (s *Store) Retrieve(ctx context.Context, query string, k int, category string) ([]exemplar.Exemplar, error) {
	if k <= 0 {
		return []exemplar.Exemplar{}, nil
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("exemplar store: embed query: %w", err)
	}

	args := []any{pgvector.NewVector(emb)} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	whereClause := ""
	if category != "" {
		whereClause = "WHERE category = " + next(category)
	}

	args = append(args, k)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT name, category, description, code,
		       embedding <=> $1 AS distance
		FROM   exemplars
		%s
		ORDER  BY distance
		LIMIT  %s`, whereClause, limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("exemplar store: retrieve: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (exemplar.Exemplar, error) {
		var (
			ex       exemplar.Exemplar
			distance float64
		)
		if err := row.Scan(
			&ex.Name,
			&ex.Category,
			&ex.Description,
			&ex.Code,
			&distance,
		); err != nil {
			return exemplar.Exemplar{}, err
		}
		ex.Similarity = 1 - distance
		return ex, nil
	})
	if err != nil {
		return nil, fmt.Errorf("exemplar store: scan rows: %w", err)
	}
	if results == nil {
		results = []exemplar.Exemplar{}
	}
	return results, nil
}

// embeddingText builds the document string that represents an exemplar in
// vector space. Description and code are concatenated so queries phrased as
// task descriptions still land near the right code.
func embeddingText(ex exemplar.Exemplar) string {
	var b strings.Builder
	b.WriteString(ex.Name)
	if ex.Description != "" {
		b.WriteString("\n")
		b.WriteString(ex.Description)
	}
	if ex.Code != "" {
		b.WriteString("\n")
		b.WriteString(ex.Code)
	}
	return b.String()
}
