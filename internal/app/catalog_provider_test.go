package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return log
}

type stubCatalogRepo struct {
	rows []*types.CatalogActivity
	err  error
}

func (s *stubCatalogRepo) Upsert(_ context.Context, _ *gorm.DB, rows []*types.CatalogActivity) ([]*types.CatalogActivity, error) {
	return rows, nil
}

func (s *stubCatalogRepo) ListAll(_ context.Context, _ *gorm.DB) ([]*types.CatalogActivity, error) {
	return s.rows, s.err
}

func (s *stubCatalogRepo) GetByNormalizedLabels(_ context.Context, _ *gorm.DB, _ []string) ([]*types.CatalogActivity, error) {
	return nil, nil
}

func (s *stubCatalogRepo) Count(_ context.Context, _ *gorm.DB) (int64, error) {
	return int64(len(s.rows)), nil
}

func catalogRow(t *testing.T, label string, codes []string, embedding []float32) *types.CatalogActivity {
	t.Helper()
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		t.Fatalf("marshal codes: %v", err)
	}
	row := &types.CatalogActivity{
		Label: label,
		Codes: datatypes.JSON(codesJSON),
	}
	if embedding != nil {
		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			t.Fatalf("marshal embedding: %v", err)
		}
		row.Embedding = datatypes.JSON(embeddingJSON)
	}
	return row
}

func TestLoadCatalogSnapshotComplete(t *testing.T) {
	repo := &stubCatalogRepo{rows: []*types.CatalogActivity{
		catalogRow(t, "Boulangerie", []string{"10.71C"}, []float32{1, 0}),
		catalogRow(t, "Restauration", []string{"56.10A"}, []float32{0, 1}),
	}}

	entries, vectors, err := loadCatalogSnapshot(context.Background(), testLogger(t), repo)
	if err != nil {
		t.Fatalf("loadCatalogSnapshot: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors: want=2 got=%d", len(vectors))
	}
	if entries[0].Label != "Boulangerie" || entries[0].Codes[0] != "10.71C" {
		t.Fatalf("entry decode: %+v", entries[0])
	}
}

func TestLoadCatalogSnapshotMissingEmbeddingDropsVectors(t *testing.T) {
	repo := &stubCatalogRepo{rows: []*types.CatalogActivity{
		catalogRow(t, "Boulangerie", []string{"10.71C"}, []float32{1, 0}),
		catalogRow(t, "Restauration", []string{"56.10A"}, nil),
	}}

	entries, vectors, err := loadCatalogSnapshot(context.Background(), testLogger(t), repo)
	if err != nil {
		t.Fatalf("loadCatalogSnapshot: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	if vectors != nil {
		t.Fatalf("vectors must be nil when any embedding is missing, got=%d", len(vectors))
	}
}

func TestLoadCatalogSnapshotSkipsUnreadableCodes(t *testing.T) {
	bad := &types.CatalogActivity{
		Label: "Cassé",
		Codes: datatypes.JSON([]byte("pas du json")),
	}
	repo := &stubCatalogRepo{rows: []*types.CatalogActivity{
		bad,
		catalogRow(t, "Boulangerie", []string{"10.71C"}, []float32{1, 0}),
	}}

	entries, _, err := loadCatalogSnapshot(context.Background(), testLogger(t), repo)
	if err != nil {
		t.Fatalf("loadCatalogSnapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "Boulangerie" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestWireCatalogSurvivesRepoFailure(t *testing.T) {
	repo := &stubCatalogRepo{err: errors.New("relation does not exist")}

	holder, provider := wireCatalog(context.Background(), testLogger(t), Clients{}, repo)
	if holder == nil {
		t.Fatalf("holder must never be nil")
	}
	if provider != "" {
		t.Fatalf("provider: want empty got=%q", provider)
	}
	if holder.Len() != 0 {
		t.Fatalf("holder should be empty, len=%d", holder.Len())
	}
}

func TestWireCatalogMemoryProvider(t *testing.T) {
	repo := &stubCatalogRepo{rows: []*types.CatalogActivity{
		catalogRow(t, "Boulangerie", []string{"10.71C"}, []float32{1, 0}),
	}}

	holder, provider := wireCatalog(context.Background(), testLogger(t), Clients{}, repo)
	if provider != "memory" {
		t.Fatalf("provider: want=memory got=%q", provider)
	}
	if holder.Len() != 1 {
		t.Fatalf("holder len: want=1 got=%d", holder.Len())
	}
}
