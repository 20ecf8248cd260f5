package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/types"
)

type CatalogActivityRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, activities []*types.CatalogActivity) ([]*types.CatalogActivity, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CatalogActivity, error)
	GetByNormalizedLabels(ctx context.Context, tx *gorm.DB, normalizedLabels []string) ([]*types.CatalogActivity, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type catalogActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogActivityRepo(db *gorm.DB, baseLog *logger.Logger) CatalogActivityRepo {
	repoLog := baseLog.With("repo", "CatalogActivityRepo")
	return &catalogActivityRepo{db: db, log: repoLog}
}

func (cr *catalogActivityRepo) Upsert(ctx context.Context, tx *gorm.DB, activities []*types.CatalogActivity) ([]*types.CatalogActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(activities) == 0 {
		return []*types.CatalogActivity{}, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}},
			DoUpdates: clause.AssignmentColumns([]string{"normalized_label", "codes", "embedding", "updated_at"}),
		}).
		Create(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (cr *catalogActivityRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CatalogActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CatalogActivity
	if err := transaction.WithContext(ctx).
		Order("normalized_label ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *catalogActivityRepo) GetByNormalizedLabels(ctx context.Context, tx *gorm.DB, normalizedLabels []string) ([]*types.CatalogActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CatalogActivity
	if len(normalizedLabels) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("normalized_label IN ?", normalizedLabels).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *catalogActivityRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.CatalogActivity{}).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
