package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/db"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openai"
	"github.com/firmoscope/backend/internal/platform/qdrant"
	"github.com/firmoscope/backend/internal/repos"
	"github.com/firmoscope/backend/internal/types"
)

// catalog-seed embeds the activity catalog and writes it to Postgres and,
// when configured, Qdrant. The source file maps each activity label to its
// NAF codes:
//
//	{"boulangerie": ["10.71C", "10.71D"], ...}
func main() {
	_ = godotenv.Load()

	sourcePath := flag.String("source", envOr("CATALOG_SOURCE_PATH", "data/activities.json"), "path to the label to codes JSON file")
	batchSize := flag.Int("batch", 64, "labels embedded per request")
	concurrency := flag.Int("concurrency", 4, "parallel embedding batches")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With("tool", "catalog-seed")

	entries, err := loadSource(*sourcePath)
	if err != nil {
		log.Error("Could not load catalog source", "path", *sourcePath, "error", err)
		os.Exit(1)
	}
	log.Info("Catalog source loaded", "path", *sourcePath, "labels", len(entries))

	embedder, err := openai.NewEmbedder(log)
	if err != nil {
		log.Error("Could not init embedder", "error", err)
		os.Exit(1)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Could not init postgres", "error", err)
		os.Exit(1)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Error("Postgres automigrate failed", "error", err)
		os.Exit(1)
	}
	catalogRepo := repos.NewCatalogActivityRepo(pg.DB(), log)

	var store qdrant.VectorStore
	if qcfg, qerr := qdrant.ResolveConfigFromEnv(); qerr == nil {
		store, qerr = qdrant.NewVectorStore(log, qcfg)
		if qerr != nil {
			log.Warn("Qdrant unavailable, seeding Postgres only", "error", qerr)
			store = nil
		}
	} else {
		log.Info("Qdrant not configured, seeding Postgres only", "error", qerr)
	}

	start := time.Now()
	var seeded atomic.Int64

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)
	for begin := 0; begin < len(entries); begin += *batchSize {
		end := begin + *batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[begin:end]
		g.Go(func() error {
			if err := seedBatch(ctx, embedder, catalogRepo, store, batch); err != nil {
				return err
			}
			seeded.Add(int64(len(batch)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("Seeding failed", "seeded", seeded.Load(), "error", err)
		os.Exit(1)
	}

	log.Info(
		"Catalog seeded",
		"labels", seeded.Load(),
		"qdrant", store != nil,
		"duration", time.Since(start).String(),
	)
}

func seedBatch(
	ctx context.Context,
	embedder openai.Embedder,
	catalogRepo repos.CatalogActivityRepo,
	store qdrant.VectorStore,
	batch []catalog.Entry,
) error {
	inputs := make([]string, len(batch))
	for i, e := range batch {
		inputs[i] = e.Label
	}
	embeddings, err := embedder.Embed(ctx, inputs)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embed batch: got %d vectors for %d labels", len(embeddings), len(batch))
	}

	rows := make([]*types.CatalogActivity, 0, len(batch))
	vectors := make([]qdrant.Vector, 0, len(batch))
	for i, e := range batch {
		codesJSON, err := json.Marshal(e.Codes)
		if err != nil {
			return fmt.Errorf("marshal codes for %q: %w", e.Label, err)
		}
		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("marshal embedding for %q: %w", e.Label, err)
		}
		rows = append(rows, &types.CatalogActivity{
			Label:           e.Label,
			NormalizedLabel: catalog.NormalizeLabel(e.Label),
			Codes:           datatypes.JSON(codesJSON),
			Embedding:       datatypes.JSON(embeddingJSON),
		})
		vectors = append(vectors, qdrant.Vector{
			ID:     catalog.NormalizeLabel(e.Label),
			Values: embeddings[i],
			Payload: map[string]any{
				catalog.PayloadLabelKey: e.Label,
				catalog.PayloadCodesKey: e.Codes,
			},
		})
	}

	if _, err := catalogRepo.Upsert(ctx, nil, rows); err != nil {
		return fmt.Errorf("upsert postgres batch: %w", err)
	}
	if store != nil {
		if err := store.Upsert(ctx, vectors); err != nil {
			return fmt.Errorf("upsert qdrant batch: %w", err)
		}
	}
	return nil
}

// loadSource reads the label mapping and returns entries in a stable
// order, dropping labels that normalize to a duplicate.
func loadSource(path string) ([]catalog.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping map[string][]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("%s contains no labels", path)
	}

	labels := make([]string, 0, len(mapping))
	for label := range mapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	seen := make(map[string]struct{}, len(labels))
	entries := make([]catalog.Entry, 0, len(labels))
	for _, label := range labels {
		normalized := catalog.NormalizeLabel(label)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		entries = append(entries, catalog.Entry{Label: label, Codes: mapping[label]})
	}
	return entries, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
