package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/toolforge/internal/app"
	"github.com/MrWong99/toolforge/internal/config"
	"github.com/MrWong99/toolforge/pkg/exemplar"
	expg "github.com/MrWong99/toolforge/pkg/exemplar/postgres"
)

// exemplarDoc is one entry of an ingestion file: a YAML list of curated tool
// samples to seed the retrieval store with.
type exemplarDoc struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Code        string `yaml:"code"`
}

// ingestExemplars loads the YAML exemplar file at path and upserts every
// entry into the configured PostgreSQL store.
func ingestExemplars(ctx context.Context, cfg *config.Config, providers *app.Providers, path string) error {
	if cfg.Exemplars.PostgresDSN == "" {
		return fmt.Errorf("ingestion requires exemplars.postgres_dsn to be configured")
	}
	if providers.Embeddings == nil {
		return fmt.Errorf("ingestion requires an embeddings provider")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read exemplar file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var docs []exemplarDoc
	if err := dec.Decode(&docs); err != nil {
		return fmt.Errorf("decode exemplar file %q: %w", path, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("exemplar file %q contains no entries", path)
	}

	store, err := expg.NewStore(ctx, cfg.Exemplars.PostgresDSN, providers.Embeddings)
	if err != nil {
		return err
	}
	defer store.Close()

	for i, doc := range docs {
		ex := exemplar.Exemplar{
			Name:        doc.Name,
			Category:    doc.Category,
			Description: doc.Description,
			Code:        doc.Code,
		}
		if err := store.Ingest(ctx, ex); err != nil {
			return fmt.Errorf("ingest entry %d (%q): %w", i, doc.Name, err)
		}
		slog.Info("exemplar ingested", "name", doc.Name, "category", doc.Category)
	}

	slog.Info("ingestion complete", "count", len(docs), "file", path)
	return nil
}
