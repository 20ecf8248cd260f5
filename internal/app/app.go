package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/db"
	httpS "github.com/firmoscope/backend/internal/http"
	"github.com/firmoscope/backend/internal/observability"
	"github.com/firmoscope/backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	PG       *db.PostgresService
	Server   *httpS.Server
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	Catalog  *catalog.Holder

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	catalogHolder, provider := wireCatalog(loadCtx, log, clientset, reposet.CatalogActivity)
	cancelLoad()
	if provider != "" {
		log.Info("Catalog ready", "provider", provider, "entries", catalogHolder.Len())
	}

	serviceset, err := wireServices(theDB, log, clientset, reposet, catalogHolder)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, pg, catalogHolder)

	srv := httpS.NewServer(httpS.RouterConfig{
		Log:                 log,
		TracingEnabled:      observability.Enabled(),
		ServiceName:         cfg.ServiceName,
		ChatHandler:         handlerset.Chat,
		SelectionHandler:    handlerset.Selection,
		ConversationHandler: handlerset.Conversation,
		HealthHandler:       handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		PG:           pg,
		Server:       srv,
		Router:       srv.Engine,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		Handlers:     handlerset,
		Catalog:      catalogHolder,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.CountCache != nil {
		_ = a.Clients.CountCache.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
