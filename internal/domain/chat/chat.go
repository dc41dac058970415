package chat

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// FallbackReply is stored when the model returns no text
const FallbackReply = "I apologize, I couldn't generate a response."

// MaxMessageLength caps a single user message
const MaxMessageLength = 10000

// Chat errors
var (
	ErrConversationNotFound = shared.NewDomainError("CONVERSATION_NOT_FOUND", "Conversation not found")
	ErrEmptyMessage         = shared.NewDomainError("INVALID_MESSAGE", "Message content cannot be empty")
	ErrMessageTooLong       = shared.NewDomainError("INVALID_MESSAGE", "Message content is too long")
	ErrInvalidRole          = shared.NewDomainError("INVALID_ROLE", "Invalid message role")
	ErrSequenceConflict     = shared.NewDomainError("CONCURRENCY_CONFLICT", "Conversation was modified by a concurrent send")
	ErrAssistantUnavailable = shared.NewDomainError("ASSISTANT_UNAVAILABLE", "AI assistant is not configured")
	ErrAssistantFailed      = shared.NewDomainError("ASSISTANT_ERROR", "AI assistant request failed")
)

// Conversation is a chat thread. Anonymous conversations have no user.
type Conversation struct {
	shared.BaseAggregateRoot
	UserID         *uuid.UUID `gorm:"type:uuid;index"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;index"`
	CustomerEmail  string     `gorm:"type:varchar(320)"`
	CustomerName   string     `gorm:"type:varchar(100)"`
	Title          string     `gorm:"type:varchar(200)"`
	Messages       []Message  `gorm:"foreignKey:ConversationID"`
}

// TableName returns the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// Message is one entry in a conversation. Sequence is assigned per
// conversation and is unique, so concurrent appends cannot interleave silently.
type Message struct {
	shared.BaseEntity
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_messages_conversation_sequence,priority:1"`
	Sequence       int       `gorm:"not null;uniqueIndex:idx_messages_conversation_sequence,priority:2"`
	Role           Role      `gorm:"type:varchar(20);not null"`
	Content        string    `gorm:"type:text;not null"`
	MetadataJSON   string    `gorm:"column:metadata_json;type:text"`
}

// TableName returns the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// ConversationOptions are the optional attributes of a new conversation
type ConversationOptions struct {
	UserID         *uuid.UUID
	OrganizationID *uuid.UUID
	CustomerEmail  string
	CustomerName   string
}

// NewConversation creates an empty conversation
func NewConversation(opts ConversationOptions) *Conversation {
	return &Conversation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            opts.UserID,
		OrganizationID:    opts.OrganizationID,
		CustomerEmail:     strings.TrimSpace(opts.CustomerEmail),
		CustomerName:      strings.TrimSpace(opts.CustomerName),
		Messages:          make([]Message, 0),
	}
}

// IsOwnedBy reports whether a caller may read the conversation.
// Anonymous callers (nil) are not restricted; a signed-in caller only sees
// its own conversations.
func (c *Conversation) IsOwnedBy(userID *uuid.UUID) bool {
	if userID == nil {
		return true
	}
	return c.UserID != nil && *c.UserID == *userID
}

// NextSequence returns the sequence number for the next message
func (c *Conversation) NextSequence() int {
	last := 0
	for _, m := range c.Messages {
		if m.Sequence > last {
			last = m.Sequence
		}
	}
	return last + 1
}

// Append adds a message at the next sequence number. The first user message
// also becomes the title when none is set.
func (c *Conversation) Append(role Role, content, metadataJSON string) (*Message, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if role == RoleUser {
		if err := ValidateContent(content); err != nil {
			return nil, err
		}
	}

	msg := Message{
		BaseEntity:     shared.NewBaseEntity(),
		ConversationID: c.ID,
		Sequence:       c.NextSequence(),
		Role:           role,
		Content:        content,
		MetadataJSON:   metadataJSON,
	}
	c.Messages = append(c.Messages, msg)
	if c.Title == "" && role == RoleUser {
		c.Title = titleFrom(content)
	}
	c.UpdatedAt = time.Now().UTC()
	return &c.Messages[len(c.Messages)-1], nil
}

// History returns the user and assistant turns in sequence order.
// System messages are not sent to the model.
func (c *Conversation) History() []Turn {
	ordered := make([]Message, len(c.Messages))
	copy(ordered, c.Messages)
	sortBySequence(ordered)

	turns := make([]Turn, 0, len(ordered))
	for _, m := range ordered {
		if m.IsDeleted() {
			continue
		}
		if m.Role == RoleUser || m.Role == RoleAssistant {
			turns = append(turns, Turn{Role: m.Role, Content: m.Content})
		}
	}
	return turns
}

// ValidateContent checks a user message
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if len([]rune(content)) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	runes := []rune(title)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return title
}

func sortBySequence(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}
