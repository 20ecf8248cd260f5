package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/repos"
	"github.com/firmoscope/backend/internal/types"
)

const titleMaxLen = 80

// ConversationService persists transcripts around the stateless turn
// pipeline. The pipeline itself never reads this state; callers replay the
// stored history into ProcessTurn.
type ConversationService interface {
	Create(ctx context.Context, initialMessage string) (*types.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Conversation, []*types.Message, error)
	List(ctx context.Context, limit, offset int) ([]*types.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reset(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]Turn, error)
	AppendTurn(ctx context.Context, id uuid.UUID, userContent, assistantContent string, metadata *TurnMetadata) error
}

type conversationService struct {
	log           *logger.Logger
	db            *gorm.DB
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
}

func NewConversationService(log *logger.Logger, db *gorm.DB, conversations repos.ConversationRepo, messages repos.MessageRepo) ConversationService {
	return &conversationService{
		log:           log.With("service", "ConversationService"),
		db:            db,
		conversations: conversations,
		messages:      messages,
	}
}

func (s *conversationService) Create(ctx context.Context, initialMessage string) (*types.Conversation, error) {
	initialMessage = strings.TrimSpace(initialMessage)
	if initialMessage == "" {
		return nil, fmt.Errorf("initial message is required")
	}

	conversation := &types.Conversation{Title: deriveTitle(initialMessage)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.conversations.Create(ctx, tx, []*types.Conversation{conversation})
		if err != nil {
			return err
		}
		conversation = created[0]

		_, err = s.messages.Create(ctx, tx, []*types.Message{{
			ConversationID: conversation.ID,
			Role:           RoleUser,
			Content:        initialMessage,
		}})
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *conversationService) Get(ctx context.Context, id uuid.UUID) (*types.Conversation, []*types.Message, error) {
	conversation, err := s.conversations.GetByID(ctx, nil, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.messages.ListByConversation(ctx, nil, id)
	if err != nil {
		return nil, nil, err
	}
	return conversation, messages, nil
}

func (s *conversationService) List(ctx context.Context, limit, offset int) ([]*types.Conversation, error) {
	return s.conversations.List(ctx, nil, limit, offset)
}

func (s *conversationService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.conversations.Delete(ctx, nil, id)
}

// Reset wipes the transcript and the carried extraction but keeps the
// conversation row, so the next turn starts from a clean history.
func (s *conversationService) Reset(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.messages.DeleteByConversation(ctx, tx, id); err != nil {
			return err
		}
		return s.conversations.UpdateLastExtraction(ctx, tx, id, nil)
	})
}

func (s *conversationService) History(ctx context.Context, id uuid.UUID) ([]Turn, error) {
	messages, err := s.messages.ListByConversation(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

func (s *conversationService) AppendTurn(ctx context.Context, id uuid.UUID, userContent, assistantContent string, metadata *TurnMetadata) error {
	var extractionJSON []byte
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal turn metadata: %w", err)
		}
		extractionJSON = raw
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messages := make([]*types.Message, 0, 2)
		if strings.TrimSpace(userContent) != "" {
			messages = append(messages, &types.Message{
				ConversationID: id,
				Role:           RoleUser,
				Content:        userContent,
			})
		}
		if strings.TrimSpace(assistantContent) != "" {
			messages = append(messages, &types.Message{
				ConversationID: id,
				Role:           RoleAssistant,
				Content:        assistantContent,
				Extraction:     datatypes.JSON(extractionJSON),
			})
		}
		if _, err := s.messages.Create(ctx, tx, messages); err != nil {
			return err
		}
		if extractionJSON != nil {
			return s.conversations.UpdateLastExtraction(ctx, tx, id, extractionJSON)
		}
		return nil
	})
}

func deriveTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen]
	}
	return title
}
