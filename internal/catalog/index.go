package catalog

import (
	"context"
	"errors"
)

// ErrIndexUnavailable is returned when no catalog backing is loaded or the
// backing store cannot be reached.
var ErrIndexUnavailable = errors.New("catalog index unavailable")

// Index answers similarity and exact-match questions over the activity
// catalog. Implementations must be safe for concurrent readers.
type Index interface {
	// NearestNeighbors returns up to topK entries ranked by similarity to
	// the query vector, best first. Ties break on normalized label so the
	// ordering is stable across calls.
	NearestNeighbors(ctx context.Context, query []float32, topK int) ([]Neighbor, error)

	// ExactLookup returns the entry whose normalized label equals the
	// normalized form of phrase, if any.
	ExactLookup(ctx context.Context, phrase string) (Entry, bool, error)

	// Len reports how many entries the index holds.
	Len() int
}
