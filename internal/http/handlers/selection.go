package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmoscope/backend/internal/http/response"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/services"
)

type SelectionHandler struct {
	log       *logger.Logger
	selection services.SelectionService
}

func NewSelectionHandler(log *logger.Logger, selection services.SelectionService) *SelectionHandler {
	return &SelectionHandler{
		log:       log.With("handler", "SelectionHandler"),
		selection: selection,
	}
}

type updateSelectionRequest struct {
	Extraction *services.ExtractionResult `json:"extraction" binding:"required"`
	Matches    []services.ActivityMatch   `json:"matches"`
}

// UpdateSelection recomputes codes and count after the caller toggled
// selected flags. The supplied match list is the new ground truth; an
// all-deselected list is valid and clears the activity filter.
func (h *SelectionHandler) UpdateSelection(c *gin.Context) {
	var req updateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.selection.Recompute(c.Request.Context(), req.Extraction, req.Matches)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "selection_recompute_failed", err)
		return
	}
	response.RespondOK(c, result)
}
