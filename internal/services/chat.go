package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openrouter"
)

type EventType string

const (
	EventMetadata EventType = "metadata"
	EventContent  EventType = "content"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// TurnMetadata is the structured half of a turn response, emitted before
// any narrative content.
type TurnMetadata struct {
	Outcome    Outcome           `json:"outcome"`
	Extraction *ExtractionResult `json:"extraction,omitempty"`
	Matches    []ActivityMatch   `json:"matches,omitempty"`
	Codes      []string          `json:"codes,omitempty"`
	Count      *CountResult      `json:"count,omitempty"`
	Degraded   []Kind            `json:"degraded,omitempty"`
}

type StreamError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// TurnEvent is one element of the ordered event sequence for a turn:
// metadata first, then content chunks, then done; error terminates the
// sequence instead.
type TurnEvent struct {
	Type     EventType     `json:"type"`
	Metadata *TurnMetadata `json:"metadata,omitempty"`
	Content  string        `json:"content,omitempty"`
	Error    *StreamError  `json:"error,omitempty"`
}

// TurnResponse is the synchronous presentation of the same pipeline run.
type TurnResponse struct {
	Metadata TurnMetadata `json:"metadata"`
	Message  string       `json:"message"`
}

type ChatService interface {
	StreamTurn(ctx context.Context, turns []Turn, prev *ResolutionState, emit func(TurnEvent) error) error
	RunTurn(ctx context.Context, turns []Turn, prev *ResolutionState) (TurnResponse, error)
}

type chatService struct {
	log          *logger.Logger
	engine       Engine
	refinement   *RefinementService
	llm          openrouter.Client
	llmNarrative bool
}

func NewChatService(log *logger.Logger, engine Engine, refinement *RefinementService, llm openrouter.Client) ChatService {
	return &chatService{
		log:          log.With("service", "ChatService"),
		engine:       engine,
		refinement:   refinement,
		llm:          llm,
		llmNarrative: envutil.GetEnvAsBool("CHAT_NARRATIVE_LLM", false, log),
	}
}

// StreamTurn sequences one turn's events: metadata as soon as the pipeline
// finishes (rejection short-circuits to a rejected metadata event), then
// narrative content chunks, then done. Any unrecoverable failure emits a
// terminal error event; the stream never stays open past a failure.
func (c *chatService) StreamTurn(ctx context.Context, turns []Turn, prev *ResolutionState, emit func(TurnEvent) error) error {
	result, err := c.engine.ProcessTurn(ctx, turns, prev)
	if err != nil {
		kind := KindOf(err)
		if kind == "" {
			kind = KindExtractionMalformed
		}
		_ = emit(TurnEvent{Type: EventError, Error: &StreamError{Kind: kind, Message: err.Error()}})
		return err
	}

	if err := emit(TurnEvent{Type: EventMetadata, Metadata: buildMetadata(result)}); err != nil {
		return err
	}

	if err := c.streamNarrative(ctx, result, emit); err != nil {
		_ = emit(TurnEvent{Type: EventError, Error: &StreamError{Kind: KindExtractionMalformed, Message: err.Error()}})
		return err
	}

	return emit(TurnEvent{Type: EventDone})
}

// RunTurn folds the same event sequence into one synchronous response.
func (c *chatService) RunTurn(ctx context.Context, turns []Turn, prev *ResolutionState) (TurnResponse, error) {
	var (
		metadata TurnMetadata
		content  strings.Builder
	)
	err := c.StreamTurn(ctx, turns, prev, func(event TurnEvent) error {
		switch event.Type {
		case EventMetadata:
			metadata = *event.Metadata
		case EventContent:
			content.WriteString(event.Content)
		}
		return nil
	})
	if err != nil {
		return TurnResponse{}, err
	}
	return TurnResponse{Metadata: metadata, Message: content.String()}, nil
}

func (c *chatService) streamNarrative(ctx context.Context, result TurnResult, emit func(TurnEvent) error) error {
	if result.Outcome == OutcomeRejected {
		return emit(TurnEvent{Type: EventContent, Content: result.Message})
	}

	templated := c.refinement.Narrative(result.State.Extraction, result.State.Count)

	if !c.llmNarrative || c.llm == nil {
		return emit(TurnEvent{Type: EventContent, Content: templated})
	}

	chunks := 0
	streamErr := c.llm.Stream(ctx, openrouter.ChatRequest{
		Messages: []openrouter.Message{
			{Role: "system", Content: narrativeSystemPrompt},
			{Role: "user", Content: templated},
		},
		Temperature: 0.4,
	}, func(delta string) error {
		chunks++
		return emit(TurnEvent{Type: EventContent, Content: delta})
	})
	if streamErr == nil {
		return nil
	}
	if chunks > 0 {
		return fmt.Errorf("narrative stream interrupted: %w", streamErr)
	}
	// Nothing reached the caller yet; the templated message still serves.
	c.log.Warn("Narrative stream failed before first chunk, using template", "error", streamErr)
	return emit(TurnEvent{Type: EventContent, Content: templated})
}

const narrativeSystemPrompt = `Tu es l'assistant d'un moteur de recherche d'entreprises françaises.
Reformule le message fourni en une réponse naturelle et concise en français, sans changer les chiffres ni les questions posées.`

func buildMetadata(result TurnResult) *TurnMetadata {
	metadata := &TurnMetadata{
		Outcome:  result.Outcome,
		Degraded: result.Degraded,
	}
	if result.State != nil {
		metadata.Extraction = result.State.Extraction
		metadata.Matches = result.State.Matches
		metadata.Codes = UnionSelectedCodes(result.State.Matches)
		metadata.Count = result.State.Count
	}
	return metadata
}
