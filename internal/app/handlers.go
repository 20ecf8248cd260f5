package app

import (
	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/db"
	httpH "github.com/firmoscope/backend/internal/http/handlers"
	"github.com/firmoscope/backend/internal/platform/logger"
)

type Handlers struct {
	Chat         *httpH.ChatHandler
	Selection    *httpH.SelectionHandler
	Conversation *httpH.ConversationHandler
	Health       *httpH.HealthHandler
}

func wireHandlers(
	log *logger.Logger,
	serviceset Services,
	pg *db.PostgresService,
	catalogHolder *catalog.Holder,
) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Chat:         httpH.NewChatHandler(log, serviceset.Chat, serviceset.Conversation),
		Selection:    httpH.NewSelectionHandler(log, serviceset.Selection),
		Conversation: httpH.NewConversationHandler(log, serviceset.Conversation, serviceset.Chat),
		Health:       httpH.NewHealthHandler(log, pg, catalogHolder),
	}
}
