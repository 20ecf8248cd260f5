package services

import (
	"context"

	"github.com/firmoscope/backend/internal/platform/logger"
)

// SelectionResult is the recomputed view after a toggle: the accepted match
// list, the code union over selected matches, the count request built from
// it, and the count. Count is nil when the count service is degraded.
type SelectionResult struct {
	Matches      []ActivityMatch `json:"matches"`
	Codes        []string        `json:"codes"`
	CountRequest CountRequest    `json:"count_request"`
	Count        *CountResult    `json:"count,omitempty"`
}

type SelectionService interface {
	Recompute(ctx context.Context, extraction *ExtractionResult, matches []ActivityMatch) (SelectionResult, error)
}

type selectionService struct {
	log    *logger.Logger
	counts CountClient
}

func NewSelectionService(log *logger.Logger, counts CountClient) SelectionService {
	return &selectionService{
		log:    log.With("service", "SelectionService"),
		counts: counts,
	}
}

// Recompute treats the supplied match list as the new ground truth. It is
// idempotent: an unchanged list yields an identical code set and count
// request. Zero selected matches is a valid state meaning "no activity
// filter", not an error.
func (s *selectionService) Recompute(ctx context.Context, extraction *ExtractionResult, matches []ActivityMatch) (SelectionResult, error) {
	codes := UnionSelectedCodes(matches)
	req := BuildCountRequest(extraction, codes)

	result := SelectionResult{
		Matches:      matches,
		Codes:        codes,
		CountRequest: req,
	}

	if s.counts == nil {
		return result, nil
	}

	count, err := s.counts.Count(ctx, req)
	if err != nil {
		// Count failure is non-fatal; the recomputed selection still stands.
		s.log.Warn("Count lookup failed during selection recompute", "error", err)
		return result, nil
	}
	result.Count = &count
	return result, nil
}

// UnionSelectedCodes collects codes across selected matches, deduplicated
// in first-seen order.
func UnionSelectedCodes(matches []ActivityMatch) []string {
	codes := make([]string, 0)
	seen := make(map[string]struct{})
	for _, m := range matches {
		if !m.Selected {
			continue
		}
		for _, code := range m.Codes {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}
