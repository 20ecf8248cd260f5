package catalog

import (
	"fmt"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/qdrant"
)

const (
	ProviderQdrant = "qdrant"
	ProviderMemory = "memory"
)

// ResolveIndex picks the catalog backing for this process: Qdrant when a
// ready store is supplied, else a brute-force scan over the loaded
// snapshot. Both unavailable means activity resolution runs degraded.
func ResolveIndex(log *logger.Logger, store qdrant.VectorStore, entries []Entry, vectors [][]float32) (Index, string, error) {
	resolveLog := log.With("component", "CatalogProvider")

	if store != nil {
		idx, err := NewQdrantIndex(store, entries)
		if err != nil {
			return nil, "", err
		}
		resolveLog.Info("Catalog index selected", "provider", ProviderQdrant, "entries", idx.Len())
		return idx, ProviderQdrant, nil
	}

	if len(entries) > 0 && len(vectors) == len(entries) {
		idx, err := NewMemoryIndex(entries, vectors)
		if err != nil {
			return nil, "", err
		}
		resolveLog.Info("Catalog index selected", "provider", ProviderMemory, "entries", idx.Len())
		return idx, ProviderMemory, nil
	}

	return nil, "", fmt.Errorf("%w: no backing store reachable and no snapshot loaded", ErrIndexUnavailable)
}
