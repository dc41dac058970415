package chat

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/freely/backend/internal/domain/chat"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultListLimit caps how many conversations a listing returns
const DefaultListLimit = 50

// Reply modes and outcomes reported to ChatMetrics
const (
	ModeComplete = "complete"
	ModeStream   = "stream"

	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// ChatMetrics records assistant reply latency
type ChatMetrics interface {
	RecordChatReply(ctx context.Context, mode, outcome string, elapsed time.Duration)
}

// ChatServiceConfig holds model request settings. Zero values leave the
// assistant's own defaults in place.
type ChatServiceConfig struct {
	SystemPrompt string
	MaxTokens    int
}

// ChatService runs conversations with the AI assistant. Sends to one
// conversation are serialized.
type ChatService struct {
	repo      chat.Repository
	assistant chat.Assistant
	locker    chat.Locker
	metrics   ChatMetrics
	config    ChatServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewChatService creates a new ChatService.
// A nil assistant makes every send fail with ErrAssistantUnavailable; nil
// locker and metrics are allowed.
func NewChatService(
	repo chat.Repository,
	assistant chat.Assistant,
	locker chat.Locker,
	metrics ChatMetrics,
	config ChatServiceConfig,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		repo:      repo,
		assistant: assistant,
		locker:    locker,
		metrics:   metrics,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateConversation always starts a new conversation
func (s *ChatService) CreateConversation(ctx context.Context, userID *uuid.UUID, input CreateConversationInput) (*ConversationResult, error) {
	conversation := chat.NewConversation(chat.ConversationOptions{
		UserID:         userID,
		OrganizationID: input.OrganizationID,
		CustomerEmail:  input.CustomerEmail,
		CustomerName:   input.CustomerName,
	})
	if err := s.repo.Save(ctx, conversation); err != nil {
		return nil, err
	}
	result := ToConversationResult(conversation)
	return &result, nil
}

// GetConversation returns a conversation with its messages. A signed-in
// caller only sees its own conversations.
func (s *ChatService) GetConversation(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*ConversationResult, error) {
	conversation, err := s.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	result := ToConversationResult(conversation)
	return &result, nil
}

// ListConversations returns a user's conversations, newest first
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]ConversationResult, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	conversations, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return ToConversationResults(conversations), nil
}

// SendMessage persists the user message, asks the assistant with the whole
// history and persists the reply
func (s *ChatService) SendMessage(ctx context.Context, userID *uuid.UUID, input SendMessageInput) (*SendMessageResult, error) {
	return s.exchange(ctx, ModeComplete, userID, input, func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
		return s.assistant.Complete(ctx, req)
	})
}

// StreamMessage is SendMessage with the reply delivered to onText as it is
// generated. The assembled reply is persisted once the stream ends.
func (s *ChatService) StreamMessage(ctx context.Context, userID *uuid.UUID, input SendMessageInput, onText func(chunk string) error) (*SendMessageResult, error) {
	return s.exchange(ctx, ModeStream, userID, input, func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
		return s.assistant.Stream(ctx, req, onText)
	})
}

type replyFunc func(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error)

func (s *ChatService) exchange(ctx context.Context, mode string, userID *uuid.UUID, input SendMessageInput, reply replyFunc) (*SendMessageResult, error) {
	if err := chat.ValidateContent(input.Content); err != nil {
		return nil, err
	}
	if s.assistant == nil {
		return nil, chat.ErrAssistantUnavailable
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "chat", "SendMessage", "mode", mode)
	defer span.End()

	conversation, unlock, err := s.acquire(ctx, userID, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()
	telemetry.SetAttributes(span, telemetry.SpanAttrConversationID, conversation.ID.String())

	userMsg, err := conversation.Append(chat.RoleUser, input.Content, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result := &SendMessageResult{
		ConversationID: conversation.ID,
		UserMessage:    ToMessageResult(userMsg),
	}

	req := chat.CompletionRequest{
		SystemPrompt: s.config.SystemPrompt,
		Turns:        conversation.History(),
		MaxTokens:    s.config.MaxTokens,
	}

	start := s.now()
	completion, err := reply(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.record(ctx, mode, OutcomeError, elapsed)
		telemetry.RecordError(span, err)
		s.logger.Error("Assistant reply failed",
			zap.String("conversation_id", conversation.ID.String()),
			zap.String("mode", mode),
			zap.Error(err))
		return nil, err
	}

	text := completion.ReplyText()
	outcome := OutcomeOK
	if text == chat.FallbackReply {
		outcome = OutcomeFallback
	}
	s.record(ctx, mode, outcome, elapsed)

	replyMsg, err := conversation.Append(chat.RoleAssistant, text, completion.MetadataJSON())
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendMessage(ctx, replyMsg); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Reply = ToMessageResult(replyMsg)

	if err := s.repo.Save(ctx, conversation); err != nil {
		s.logger.Warn("Failed to update conversation",
			zap.String("conversation_id", conversation.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Assistant replied",
		zap.String("conversation_id", conversation.ID.String()),
		zap.String("mode", mode),
		zap.String("outcome", outcome),
		zap.Duration("latency", elapsed))
	return result, nil
}

// acquire locks the target conversation and loads it, or creates a new one
func (s *ChatService) acquire(ctx context.Context, userID *uuid.UUID, input SendMessageInput) (*chat.Conversation, func(), error) {
	if input.ConversationID == nil {
		conversation := chat.NewConversation(chat.ConversationOptions{
			UserID:         userID,
			OrganizationID: input.OrganizationID,
		})
		unlock, err := s.lock(ctx, conversation.ID)
		if err != nil {
			return nil, nil, err
		}
		if err := s.repo.Save(ctx, conversation); err != nil {
			unlock()
			return nil, nil, err
		}
		return conversation, unlock, nil
	}

	unlock, err := s.lock(ctx, *input.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	conversation, err := s.load(ctx, *input.ConversationID, userID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return conversation, unlock, nil
}

func (s *ChatService) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, id)
}

func (s *ChatService) load(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*chat.Conversation, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conversation.IsOwnedBy(userID) {
		return nil, chat.ErrConversationNotFound
	}
	return conversation, nil
}

func (s *ChatService) record(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordChatReply(ctx, mode, outcome, elapsed)
}

func sortMessages(messages []MessageResult) {
	slices.SortStableFunc(messages, func(a, b MessageResult) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}

// IsAssistantError reports whether err came from the assistant rather than
// from validation or storage
func IsAssistantError(err error) bool {
	return errors.Is(err, chat.ErrAssistantFailed) || errors.Is(err, chat.ErrAssistantUnavailable)
}
