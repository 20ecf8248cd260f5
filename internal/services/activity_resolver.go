package services

import (
	"context"
	"errors"
	"strings"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openai"
)

// ActivityMatch is one scored catalog candidate for an activity phrase.
// Selected flags are conversation state owned by the caller between turns.
type ActivityMatch struct {
	Label    string   `json:"label"`
	Codes    []string `json:"codes"`
	Score    float64  `json:"score"`
	Selected bool     `json:"selected"`
}

type ActivityResolver interface {
	Resolve(ctx context.Context, phrase string) ([]ActivityMatch, error)
}

type activityResolver struct {
	log       *logger.Logger
	index     catalog.Index
	embedder  openai.Embedder
	topK      int
	threshold float64
}

func NewActivityResolver(log *logger.Logger, index catalog.Index, embedder openai.Embedder) ActivityResolver {
	return &activityResolver{
		log:       log.With("service", "ActivityResolver"),
		index:     index,
		embedder:  embedder,
		topK:      envutil.GetEnvAsInt("ACTIVITY_TOP_K", 5, log),
		threshold: envutil.GetEnvAsFloat("ACTIVITY_SCORE_THRESHOLD", 0.3, log),
	}
}

// Resolve maps a free-text activity phrase to ranked catalog matches. An
// exact label match is always rank 1 with score 1.0 and short-circuits the
// embedding path. Matches at or above the score threshold start selected.
func (r *activityResolver) Resolve(ctx context.Context, phrase string) ([]ActivityMatch, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, serviceErr(KindEmbeddingServiceFailure, "activity phrase is empty", nil)
	}
	if r.index == nil {
		return nil, serviceErr(KindIndexUnavailable, "no catalog index configured", nil)
	}

	entry, found, err := r.index.ExactLookup(ctx, phrase)
	if err != nil {
		return nil, r.classifyIndexError(err)
	}
	if found {
		return []ActivityMatch{{
			Label:    entry.Label,
			Codes:    append([]string(nil), entry.Codes...),
			Score:    1.0,
			Selected: true,
		}}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{phrase})
	if err != nil {
		return nil, serviceErr(KindEmbeddingServiceFailure, "embed activity phrase failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, serviceErr(KindEmbeddingServiceFailure, "embedding service returned no vector", nil)
	}

	neighbors, err := r.index.NearestNeighbors(ctx, vectors[0], r.topK)
	if err != nil {
		return nil, r.classifyIndexError(err)
	}

	matches := make([]ActivityMatch, 0, len(neighbors))
	for _, n := range neighbors {
		matches = append(matches, ActivityMatch{
			Label:    n.Entry.Label,
			Codes:    append([]string(nil), n.Entry.Codes...),
			Score:    n.Score,
			Selected: n.Score >= r.threshold,
		})
	}
	return matches, nil
}

func (r *activityResolver) classifyIndexError(err error) error {
	if errors.Is(err, catalog.ErrIndexUnavailable) {
		return serviceErr(KindIndexUnavailable, "catalog index unreachable", err)
	}
	return serviceErr(KindIndexUnavailable, "catalog lookup failed", err)
}
