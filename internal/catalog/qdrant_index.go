package catalog

import (
	"context"
	"fmt"

	"github.com/firmoscope/backend/internal/platform/qdrant"
)

// Payload keys written by the seed tool alongside each point.
const (
	PayloadLabelKey = "label"
	PayloadCodesKey = "codes"
)

// QdrantIndex serves nearest-neighbor queries from a Qdrant collection.
// Exact lookups resolve against the label map loaded from Postgres at
// startup, so a cold Qdrant collection still answers exact matches.
type QdrantIndex struct {
	store   qdrant.VectorStore
	byLabel map[string]Entry
}

// NewQdrantIndex wraps store with a label map keyed by each entry's
// normalized label. Entries with duplicate normalized labels keep the
// first occurrence.
func NewQdrantIndex(store qdrant.VectorStore, entries []Entry) (*QdrantIndex, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog: vector store required")
	}
	byLabel := make(map[string]Entry, len(entries))
	for i, e := range entries {
		normalized := NormalizeLabel(e.Label)
		if normalized == "" {
			return nil, fmt.Errorf("catalog: entry %d has empty label", i)
		}
		if _, seen := byLabel[normalized]; seen {
			continue
		}
		byLabel[normalized] = e
	}
	return &QdrantIndex{store: store, byLabel: byLabel}, nil
}

func (q *QdrantIndex) NearestNeighbors(ctx context.Context, query []float32, topK int) ([]Neighbor, error) {
	matches, err := q.store.Query(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	out := make([]Neighbor, 0, len(matches))
	for _, m := range matches {
		entry, ok := q.entryForMatch(m)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Entry: entry, Score: m.Score})
	}
	return out, nil
}

func (q *QdrantIndex) ExactLookup(ctx context.Context, phrase string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	entry, ok := q.byLabel[NormalizeLabel(phrase)]
	return entry, ok, nil
}

func (q *QdrantIndex) Len() int {
	return len(q.byLabel)
}

func (q *QdrantIndex) entryForMatch(m qdrant.Match) (Entry, bool) {
	if entry, ok := q.byLabel[m.ID]; ok {
		return entry, true
	}
	// Points seeded by an older catalog version may not be in the label
	// map anymore; fall back to the payload they were stored with.
	label, _ := m.Payload[PayloadLabelKey].(string)
	if label == "" {
		return Entry{}, false
	}
	rawCodes, _ := m.Payload[PayloadCodesKey].([]any)
	codes := make([]string, 0, len(rawCodes))
	for _, c := range rawCodes {
		if code, ok := c.(string); ok && code != "" {
			codes = append(codes, code)
		}
	}
	return Entry{Label: label, Codes: codes}, true
}
