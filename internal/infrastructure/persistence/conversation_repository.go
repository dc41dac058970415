package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormConversationRepository implements chat.Repository using GORM
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func withMessages(db *gorm.DB) *gorm.DB {
	return db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("messages.sequence ASC")
	})
}

// FindByID returns a live conversation with its messages in sequence order
func (r *GormConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Conversation, error) {
	var c chat.Conversation
	if err := conn(ctx, r.db).Scopes(withMessages).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, chat.ErrConversationNotFound)
	}
	return &c, nil
}

// ListByUser returns a user's conversations with messages, newest first
func (r *GormConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]chat.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var conversations []chat.Conversation
	err := conn(ctx, r.db).
		Scopes(withMessages).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&conversations).Error
	return conversations, err
}

// Save writes the conversation row without its messages
func (r *GormConversationRepository) Save(ctx context.Context, c *chat.Conversation) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(c).Error
}

// AppendMessage inserts a message; a taken sequence number is a conflict
func (r *GormConversationRepository) AppendMessage(ctx context.Context, message *chat.Message) error {
	err := conn(ctx, r.db).Create(message).Error
	if isDuplicateKey(err) {
		return chat.ErrSequenceConflict
	}
	return err
}
