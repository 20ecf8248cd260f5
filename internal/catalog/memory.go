package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
)

type memoryEntry struct {
	entry      Entry
	normalized string
	vector     []float32
	norm       float64
}

// MemoryIndex is a brute-force in-memory catalog index. Entries are fixed
// at construction, so lookups need no locking.
type MemoryIndex struct {
	entries []memoryEntry
	byLabel map[string]int
	dim     int
}

// NewMemoryIndex builds an index over entries and their embeddings.
// vectors[i] embeds entries[i]. Later duplicates of a normalized label
// are dropped so exact lookup stays unambiguous.
func NewMemoryIndex(entries []Entry, vectors [][]float32) (*MemoryIndex, error) {
	if len(entries) != len(vectors) {
		return nil, fmt.Errorf("catalog: %d entries but %d vectors", len(entries), len(vectors))
	}

	idx := &MemoryIndex{
		byLabel: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		normalized := NormalizeLabel(e.Label)
		if normalized == "" {
			return nil, fmt.Errorf("catalog: entry %d has empty label", i)
		}
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("catalog: entry %q has empty vector", e.Label)
		}
		if idx.dim == 0 {
			idx.dim = len(vectors[i])
		} else if len(vectors[i]) != idx.dim {
			return nil, fmt.Errorf("catalog: entry %q dimension mismatch: expected=%d got=%d", e.Label, idx.dim, len(vectors[i]))
		}
		if _, seen := idx.byLabel[normalized]; seen {
			continue
		}
		idx.byLabel[normalized] = len(idx.entries)
		idx.entries = append(idx.entries, memoryEntry{
			entry:      e,
			normalized: normalized,
			vector:     vectors[i],
			norm:       l2Norm(vectors[i]),
		})
	}
	return idx, nil
}

func (m *MemoryIndex) NearestNeighbors(ctx context.Context, query []float32, topK int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("catalog: query vector required")
	}
	if m.dim > 0 && len(query) != m.dim {
		return nil, fmt.Errorf("catalog: query dimension mismatch: expected=%d got=%d", m.dim, len(query))
	}
	if topK <= 0 {
		topK = 5
	}

	queryNorm := l2Norm(query)
	type scoredEntry struct {
		neighbor   Neighbor
		normalized string
	}
	scored := make([]scoredEntry, 0, len(m.entries))
	for _, e := range m.entries {
		scored = append(scored, scoredEntry{
			neighbor: Neighbor{
				Entry: e.entry,
				Score: cosine(query, queryNorm, e.vector, e.norm),
			},
			normalized: e.normalized,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].neighbor.Score == scored[j].neighbor.Score {
			return scored[i].normalized < scored[j].normalized
		}
		return scored[i].neighbor.Score > scored[j].neighbor.Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	out := make([]Neighbor, 0, topK)
	for _, s := range scored[:topK] {
		out = append(out, s.neighbor)
	}
	return out, nil
}

func (m *MemoryIndex) ExactLookup(ctx context.Context, phrase string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	i, ok := m.byLabel[NormalizeLabel(phrase)]
	if !ok {
		return Entry{}, false, nil
	}
	return m.entries[i].entry, true, nil
}

func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
