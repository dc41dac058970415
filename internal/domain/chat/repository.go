package chat

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for conversation persistence
type Repository interface {
	// FindByID returns a live conversation with its messages in sequence order
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// ListByUser returns a user's conversations with messages, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Conversation, error)

	// Save writes the conversation row without its messages
	Save(ctx context.Context, conversation *Conversation) error

	// AppendMessage inserts a message. A duplicate sequence number for the
	// conversation yields ErrSequenceConflict.
	AppendMessage(ctx context.Context, message *Message) error
}

// Locker serializes sends to one conversation
type Locker interface {
	// Lock blocks until the conversation is locked or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, conversationID uuid.UUID) (unlock func(), err error)
}
