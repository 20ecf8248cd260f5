package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CatalogActivity struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Label           string         `gorm:"column:label;not null;uniqueIndex" json:"label"`
	NormalizedLabel string         `gorm:"column:normalized_label;not null;index" json:"normalized_label"`
	Codes           datatypes.JSON `gorm:"column:codes;not null" json:"codes"`
	Embedding       datatypes.JSON `gorm:"column:embedding" json:"embedding,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CatalogActivity) TableName() string { return "catalog_activity" }
