package app

import (
	"gorm.io/gorm"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/repos"
)

type Repos struct {
	CatalogActivity repos.CatalogActivityRepo
	Conversation    repos.ConversationRepo
	Message         repos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CatalogActivity: repos.NewCatalogActivityRepo(db, log),
		Conversation:    repos.NewConversationRepo(db, log),
		Message:         repos.NewMessageRepo(db, log),
	}
}
