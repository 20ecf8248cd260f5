package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/services"
)

type Services struct {
	Extractor    services.Extractor
	Resolver     services.ActivityResolver
	Counts       services.CountClient
	Selection    services.SelectionService
	Engine       services.Engine
	Refinement   *services.RefinementService
	Chat         services.ChatService
	Conversation services.ConversationService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	clients Clients,
	reposet Repos,
	catalogHolder *catalog.Holder,
) (Services, error) {
	log.Info("Wiring services...")

	extractor := services.NewExtractor(log, clients.LLM)
	resolver := services.NewActivityResolver(log, catalogHolder, clients.Embedder)

	counts, err := services.NewCountClient(log, clients.CountCache)
	if err != nil {
		return Services{}, fmt.Errorf("init count client: %w", err)
	}

	selection := services.NewSelectionService(log, counts)
	engine := services.NewEngine(log, extractor, resolver, counts)
	refinement := services.NewRefinementService(log)
	chat := services.NewChatService(log, engine, refinement, clients.LLM)
	conversation := services.NewConversationService(log, db, reposet.Conversation, reposet.Message)

	return Services{
		Extractor:    extractor,
		Resolver:     resolver,
		Counts:       counts,
		Selection:    selection,
		Engine:       engine,
		Refinement:   refinement,
		Chat:         chat,
		Conversation: conversation,
	}, nil
}
