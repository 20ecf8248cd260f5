package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/firmoscope/backend/internal/http/response"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/services"
)

type ConversationHandler struct {
	log           *logger.Logger
	conversations services.ConversationService
	chat          services.ChatService
}

func NewConversationHandler(log *logger.Logger, conversations services.ConversationService, chat services.ChatService) *ConversationHandler {
	return &ConversationHandler{
		log:           log.With("handler", "ConversationHandler"),
		conversations: conversations,
		chat:          chat,
	}
}

type createConversationRequest struct {
	InitialMessage string `json:"initial_message" binding:"required"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	conversation, err := h.conversations.Create(c.Request.Context(), req.InitialMessage)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "conversation_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	conversation, messages, err := h.conversations.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "conversation_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{
		"conversation": conversation,
		"messages":     messages,
	})
}

func (h *ConversationHandler) List(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	conversations, err := h.conversations.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "conversation_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": conversations})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.conversations.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "conversation_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) Reset(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.conversations.Reset(c.Request.Context(), id); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "conversation_reset_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMessageRequest struct {
	Content       string                    `json:"content" binding:"required"`
	PreviousState *services.ResolutionState `json:"previous_state,omitempty"`
}

// AddMessage appends a user message to a stored conversation and runs one
// turn over the full persisted history.
func (h *ConversationHandler) AddMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req addMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	history, err := h.conversations.History(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "conversation_not_found", err)
		return
	}
	turns := append(history, services.Turn{Role: services.RoleUser, Content: req.Content})

	result, err := h.chat.RunTurn(c.Request.Context(), turns, req.PreviousState)
	if err != nil {
		status, code := classifyTurnError(err)
		response.RespondError(c, status, code, err)
		return
	}

	if err := h.conversations.AppendTurn(c.Request.Context(), id, req.Content, result.Message, &result.Metadata); err != nil {
		h.log.Warn("Failed to persist turn", "error", err)
	}
	response.RespondOK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
