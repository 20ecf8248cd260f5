package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/firmoscope/backend/internal/http/response"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/services"
	"github.com/firmoscope/backend/internal/sse"
)

type ChatHandler struct {
	log           *logger.Logger
	chat          services.ChatService
	conversations services.ConversationService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService, conversations services.ConversationService) *ChatHandler {
	return &ChatHandler{
		log:           log.With("handler", "ChatHandler"),
		chat:          chat,
		conversations: conversations,
	}
}

type chatRequest struct {
	Messages       []services.Turn           `json:"messages"`
	PreviousState  *services.ResolutionState `json:"previous_state,omitempty"`
	ConversationID *uuid.UUID                `json:"conversation_id,omitempty"`
}

// Chat runs one turn synchronously. The caller supplies the full ordered
// history and the previous resolution state; nothing is held server-side
// unless a conversation id asks for persistence.
func (h *ChatHandler) Chat(c *gin.Context) {
	req, turns, ok := h.bindTurn(c)
	if !ok {
		return
	}

	result, err := h.chat.RunTurn(c.Request.Context(), turns, req.PreviousState)
	if err != nil {
		status, code := classifyTurnError(err)
		response.RespondError(c, status, code, err)
		return
	}

	h.persistTurn(c, req, turns, result.Message, &result.Metadata)
	response.RespondOK(c, result)
}

// ChatStream runs the same pipeline but renders the event sequence as SSE.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req, turns, ok := h.bindTurn(c)
	if !ok {
		return
	}

	writer, err := sse.NewStreamWriter(c.Writer, h.log)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", err)
		return
	}

	var (
		metadata *services.TurnMetadata
		content  []byte
	)
	streamErr := h.chat.StreamTurn(c.Request.Context(), turns, req.PreviousState, func(event services.TurnEvent) error {
		switch event.Type {
		case services.EventMetadata:
			metadata = event.Metadata
			return writer.Send(string(event.Type), event.Metadata)
		case services.EventContent:
			content = append(content, event.Content...)
			return writer.Send(string(event.Type), gin.H{"content": event.Content})
		case services.EventError:
			return writer.Send(string(event.Type), event.Error)
		default:
			return writer.Send(string(event.Type), gin.H{})
		}
	})
	if streamErr != nil {
		h.log.Warn("Chat stream terminated on failure", "error", streamErr)
		return
	}

	h.persistTurn(c, req, turns, string(content), metadata)
}

func (h *ChatHandler) bindTurn(c *gin.Context) (chatRequest, []services.Turn, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return req, nil, false
	}

	turns := req.Messages
	if req.ConversationID != nil && h.conversations != nil {
		stored, err := h.conversations.History(c.Request.Context(), *req.ConversationID)
		if err != nil {
			response.RespondError(c, http.StatusNotFound, "conversation_not_found", err)
			return req, nil, false
		}
		turns = append(stored, req.Messages...)
	}

	if len(turns) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("messages are required"))
		return req, nil, false
	}
	return req, turns, true
}

func (h *ChatHandler) persistTurn(c *gin.Context, req chatRequest, turns []services.Turn, assistantMessage string, metadata *services.TurnMetadata) {
	if req.ConversationID == nil || h.conversations == nil {
		return
	}

	userContent := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == services.RoleUser {
			userContent = req.Messages[i].Content
			break
		}
	}

	if err := h.conversations.AppendTurn(c.Request.Context(), *req.ConversationID, userContent, assistantMessage, metadata); err != nil {
		h.log.Warn("Failed to persist turn", "error", err)
	}
}

func classifyTurnError(err error) (int, string) {
	switch services.KindOf(err) {
	case services.KindExtractionMalformed:
		return http.StatusBadGateway, string(services.KindExtractionMalformed)
	case services.KindIndexUnavailable:
		return http.StatusServiceUnavailable, string(services.KindIndexUnavailable)
	default:
		return http.StatusInternalServerError, "turn_failed"
	}
}
