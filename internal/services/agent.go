package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/firmoscope/backend/internal/platform/logger"
)

// Turn is one conversation message, ordered by occurrence.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Outcome string

const (
	OutcomeRejected Outcome = "rejected"
	OutcomeResolved Outcome = "resolved"
)

// ResolutionState is the caller-held triple of extraction, matches, and
// count. The engine never retains it between calls; every mutation replaces
// the whole value.
type ResolutionState struct {
	Extraction *ExtractionResult `json:"extraction"`
	Matches    []ActivityMatch   `json:"matches"`
	Count      *CountResult      `json:"count,omitempty"`
}

// TurnResult is the tagged outcome of one turn. Degraded lists the
// non-fatal failure kinds encountered along the way.
type TurnResult struct {
	Outcome      Outcome          `json:"outcome"`
	Message      string           `json:"message,omitempty"`
	State        *ResolutionState `json:"state,omitempty"`
	CountRequest *CountRequest    `json:"count_request,omitempty"`
	Degraded     []Kind           `json:"degraded,omitempty"`
}

type Engine interface {
	ProcessTurn(ctx context.Context, turns []Turn, prev *ResolutionState) (TurnResult, error)
}

type engine struct {
	log       *logger.Logger
	extractor Extractor
	resolver  ActivityResolver
	counts    CountClient
}

func NewEngine(log *logger.Logger, extractor Extractor, resolver ActivityResolver, counts CountClient) Engine {
	return &engine{
		log:       log.With("service", "Engine"),
		extractor: extractor,
		resolver:  resolver,
		counts:    counts,
	}
}

// ProcessTurn runs one turn through merge, extraction, resolution, and
// count. The previous state is context only; a successful extraction
// replaces it wholesale. Only merge and extraction failures abort the turn.
func (e *engine) ProcessTurn(ctx context.Context, turns []Turn, prev *ResolutionState) (TurnResult, error) {
	merged := MergeQuery(turns)
	if merged == "" {
		return TurnResult{}, fmt.Errorf("no user content to process")
	}

	outcome, err := e.extractor.Extract(ctx, extractionInput(turns, merged))
	if err != nil {
		return TurnResult{}, err
	}
	if outcome.Rejected {
		return TurnResult{
			Outcome: OutcomeRejected,
			Message: outcome.Message,
		}, nil
	}

	extraction := outcome.Result
	var degraded []Kind

	var matches []ActivityMatch
	if phrase := extraction.ActivityPhrase(); phrase != "" {
		matches, err = e.resolveActivity(ctx, phrase)
		if err != nil {
			// Activity resolution degrades; the other groups still count.
			kind := KindOf(err)
			if kind == "" {
				kind = KindIndexUnavailable
			}
			e.log.Warn("Activity resolution degraded", "kind", kind, "error", err)
			degraded = append(degraded, kind)
			matches = nil
		}
	}

	codes := UnionSelectedCodes(matches)
	countReq := BuildCountRequest(extraction, codes)

	var count *CountResult
	if e.counts != nil {
		if result, err := e.counts.Count(ctx, countReq); err != nil {
			e.log.Warn("Count lookup failed", "error", err)
			degraded = append(degraded, KindCountServiceFailure)
		} else {
			count = &result
		}
	}

	return TurnResult{
		Outcome: OutcomeResolved,
		State: &ResolutionState{
			Extraction: extraction,
			Matches:    matches,
			Count:      count,
		},
		CountRequest: &countReq,
		Degraded:     degraded,
	}, nil
}

func (e *engine) resolveActivity(ctx context.Context, phrase string) ([]ActivityMatch, error) {
	if e.resolver == nil {
		return nil, serviceErr(KindIndexUnavailable, "activity resolver not configured", nil)
	}
	return e.resolver.Resolve(ctx, phrase)
}

// MergeQuery concatenates user-role turn contents chronologically into the
// canonical query. Assistant turns are context only.
func MergeQuery(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		if turn.Role != RoleUser {
			continue
		}
		if content := strings.TrimSpace(turn.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n")
}

// extractionInput frames the request for the completion service. A single
// user turn goes through as-is; a multi-turn conversation carries the full
// labeled history so the model sees assistant context too.
func extractionInput(turns []Turn, merged string) string {
	userTurns := 0
	for _, turn := range turns {
		if turn.Role == RoleUser {
			userTurns++
		}
	}
	if userTurns <= 1 {
		return merged
	}

	var b strings.Builder
	b.WriteString("CONVERSATION:\n")
	for _, turn := range turns {
		label := "Agent"
		if turn.Role == RoleUser {
			label = "Utilisateur"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(turn.Content))
		b.WriteString("\n")
	}
	b.WriteString("\nExtrais les critères de recherche de la conversation complète.")
	return b.String()
}
