package chat

import (
	"time"

	"github.com/freely/backend/internal/domain/chat"
	"github.com/google/uuid"
)

// CreateConversationInput holds the optional attributes of a new conversation
type CreateConversationInput struct {
	OrganizationID *uuid.UUID
	CustomerEmail  string
	CustomerName   string
}

// SendMessageInput is one user message. Without a ConversationID a new
// conversation is started.
type SendMessageInput struct {
	ConversationID *uuid.UUID
	OrganizationID *uuid.UUID
	Content        string
}

// MessageResult is the external view of a message
type MessageResult struct {
	ID        uuid.UUID
	Sequence  int
	Role      string
	Content   string
	CreatedAt time.Time
}

// ConversationResult is the external view of a conversation
type ConversationResult struct {
	ID             uuid.UUID
	UserID         *uuid.UUID
	OrganizationID *uuid.UUID
	CustomerEmail  string
	CustomerName   string
	Title          string
	Messages       []MessageResult
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SendMessageResult holds both sides of one exchange
type SendMessageResult struct {
	ConversationID uuid.UUID
	UserMessage    MessageResult
	Reply          MessageResult
}

// ToMessageResult converts a message to its external view
func ToMessageResult(m *chat.Message) MessageResult {
	return MessageResult{
		ID:        m.ID,
		Sequence:  m.Sequence,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// ToConversationResult converts a conversation to its external view.
// Messages are listed in sequence order.
func ToConversationResult(c *chat.Conversation) ConversationResult {
	messages := make([]MessageResult, 0, len(c.Messages))
	for i := range c.Messages {
		if c.Messages[i].IsDeleted() {
			continue
		}
		messages = append(messages, ToMessageResult(&c.Messages[i]))
	}
	sortMessages(messages)
	return ConversationResult{
		ID:             c.ID,
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		CustomerEmail:  c.CustomerEmail,
		CustomerName:   c.CustomerName,
		Title:          c.Title,
		Messages:       messages,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToConversationResults converts a slice of conversations
func ToConversationResults(conversations []chat.Conversation) []ConversationResult {
	results := make([]ConversationResult, len(conversations))
	for i := range conversations {
		results[i] = ToConversationResult(&conversations[i])
	}
	return results
}
