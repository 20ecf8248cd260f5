package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/firmoscope/backend/internal/cache"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openai"
	"github.com/firmoscope/backend/internal/platform/openrouter"
	"github.com/firmoscope/backend/internal/platform/qdrant"
)

var (
	newOpenRouterClient  = openrouter.NewClient
	newEmbedder          = openai.NewEmbedder
	newQdrantVectorStore = qdrant.NewVectorStore
	newRedisCountCache   = cache.NewRedisCountCache
)

type Clients struct {
	LLM         openrouter.Client
	Embedder    openai.Embedder
	VectorStore qdrant.VectorStore
	CountCache  cache.CountCache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	llm, err := newOpenRouterClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openrouter client: %w", err)
	}

	embedder, err := newEmbedder(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init embedder: %w", err)
	}

	// Count memoization degrades to a no-op without Redis.
	var countCache cache.CountCache
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		cc, cerr := newRedisCountCache(log)
		if cerr != nil {
			log.Warn("Redis count cache unavailable, counts go uncached", "error", cerr)
			countCache = cache.NewNoopCountCache()
		} else {
			countCache = cc
		}
	} else {
		countCache = cache.NewNoopCountCache()
	}

	return Clients{
		LLM:         llm,
		Embedder:    embedder,
		VectorStore: wireVectorStore(log, cfg),
		CountCache:  countCache,
	}, nil
}

// wireVectorStore returns nil when Qdrant is disabled or unreachable; the
// catalog then falls back to the in-memory snapshot.
func wireVectorStore(log *logger.Logger, cfg Config) qdrant.VectorStore {
	provider := strings.TrimSpace(strings.ToLower(cfg.CatalogProvider))
	if provider == "memory" {
		log.Info("Catalog provider forced to memory, skipping Qdrant")
		return nil
	}

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		if provider == "qdrant" {
			log.Error("Qdrant requested but misconfigured", "error", err)
		} else {
			log.Info("Qdrant not configured, using memory catalog", "error", err)
		}
		return nil
	}

	store, err := newQdrantVectorStore(log, qcfg)
	if err != nil {
		log.Warn("Qdrant unreachable, using memory catalog", "url", qcfg.URL, "error", err)
		return nil
	}
	return store
}
