package app

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/repos"
)

// loadCatalogSnapshot pulls the full activity catalog out of Postgres.
// Vectors come back nil when any row is missing a usable embedding; the
// memory index needs the complete set or none at all.
func loadCatalogSnapshot(
	ctx context.Context,
	log *logger.Logger,
	catalogRepo repos.CatalogActivityRepo,
) ([]catalog.Entry, [][]float32, error) {
	rows, err := catalogRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]catalog.Entry, 0, len(rows))
	vectors := make([][]float32, 0, len(rows))
	complete := true
	for _, row := range rows {
		var codes []string
		if err := json.Unmarshal(row.Codes, &codes); err != nil {
			log.Warn("Skipping catalog row with unreadable codes", "label", row.Label, "error", err)
			continue
		}
		entries = append(entries, catalog.Entry{Label: row.Label, Codes: codes})

		if len(row.Embedding) == 0 {
			complete = false
			continue
		}
		var vec []float32
		if err := json.Unmarshal(row.Embedding, &vec); err != nil || len(vec) == 0 {
			complete = false
			continue
		}
		vectors = append(vectors, vec)
	}

	if !complete || len(vectors) != len(entries) {
		if len(entries) > 0 {
			log.Warn("Catalog snapshot has incomplete embeddings", "entries", len(entries), "vectors", len(vectors))
		}
		vectors = nil
	}
	return entries, vectors, nil
}

// wireCatalog resolves the catalog index and wraps it in a Holder so a
// seed run can swap the live index without a restart. An empty catalog is
// not fatal; the engine reports activity resolution as degraded until the
// seed tool has run.
func wireCatalog(
	ctx context.Context,
	log *logger.Logger,
	clients Clients,
	catalogRepo repos.CatalogActivityRepo,
) (*catalog.Holder, string) {
	entries, vectors, err := loadCatalogSnapshot(ctx, log, catalogRepo)
	if err != nil {
		log.Error("Catalog snapshot load failed", "error", err)
		return catalog.NewHolder(nil), ""
	}

	idx, provider, err := catalog.ResolveIndex(log, clients.VectorStore, entries, vectors)
	if err != nil {
		if errors.Is(err, catalog.ErrIndexUnavailable) {
			log.Warn("Catalog index unavailable at startup", "entries", len(entries))
		} else {
			log.Error("Catalog index init failed", "error", err)
		}
		return catalog.NewHolder(nil), ""
	}
	return catalog.NewHolder(idx), provider
}
