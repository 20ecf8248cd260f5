package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;index:idx_message_conversation,priority:1" json:"conversation_id"`
	Conversation   *Conversation  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	Role           string         `gorm:"column:role;not null;index" json:"role"` // user|assistant
	Content        string         `gorm:"column:content;not null" json:"content"`
	Extraction     datatypes.JSON `gorm:"column:extraction" json:"extraction,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index:idx_message_conversation,priority:2" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Message) TableName() string { return "message" }
