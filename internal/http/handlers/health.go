package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/db"
	"github.com/firmoscope/backend/internal/http/response"
	"github.com/firmoscope/backend/internal/platform/logger"
)

type HealthHandler struct {
	log     *logger.Logger
	pg      *db.PostgresService
	catalog *catalog.Holder
}

func NewHealthHandler(log *logger.Logger, pg *db.PostgresService, catalogHolder *catalog.Holder) *HealthHandler {
	return &HealthHandler{
		log:     log.With("handler", "HealthHandler"),
		pg:      pg,
		catalog: catalogHolder,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	database := "unavailable"
	if h.pg != nil {
		if sqlDB, err := h.pg.DB().DB(); err == nil {
			if err := sqlDB.PingContext(c.Request.Context()); err == nil {
				database = "connected"
			}
		}
	}

	catalogEntries := 0
	if h.catalog != nil {
		catalogEntries = h.catalog.Len()
	}

	response.RespondOK(c, gin.H{
		"status":          "ok",
		"database":        database,
		"catalog_entries": catalogEntries,
		"timestamp":       time.Now().UTC(),
	})
}
