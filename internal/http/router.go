package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/firmoscope/backend/internal/http/handlers"
	httpMW "github.com/firmoscope/backend/internal/http/middleware"
	"github.com/firmoscope/backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	TracingEnabled bool
	ServiceName    string

	ChatHandler         *httpH.ChatHandler
	SelectionHandler    *httpH.SelectionHandler
	ConversationHandler *httpH.ConversationHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Chat)
			api.POST("/chat/stream", cfg.ChatHandler.ChatStream)
		}

		if cfg.SelectionHandler != nil {
			api.POST("/update-selection", cfg.SelectionHandler.UpdateSelection)
		}

		if cfg.ConversationHandler != nil {
			api.POST("/conversations", cfg.ConversationHandler.Create)
			api.GET("/conversations", cfg.ConversationHandler.List)
			api.GET("/conversations/:id", cfg.ConversationHandler.Get)
			api.DELETE("/conversations/:id", cfg.ConversationHandler.Delete)
			api.POST("/conversations/:id/reset", cfg.ConversationHandler.Reset)
			api.POST("/conversations/:id/messages", cfg.ConversationHandler.AddMessage)
		}
	}

	return r
}
