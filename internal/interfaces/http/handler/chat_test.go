package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/freely/backend/internal/application/chat"
	domainchat "github.com/freely/backend/internal/domain/chat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatService implements ChatUseCases for testing
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) conversation(args mock.Arguments) (*chat.ConversationResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.ConversationResult), args.Error(1)
}

func (m *MockChatService) exchange(args mock.Arguments) (*chat.SendMessageResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.SendMessageResult), args.Error(1)
}

func (m *MockChatService) CreateConversation(ctx context.Context, userID *uuid.UUID, input chat.CreateConversationInput) (*chat.ConversationResult, error) {
	return m.conversation(m.Called(ctx, userID, input))
}

func (m *MockChatService) GetConversation(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*chat.ConversationResult, error) {
	return m.conversation(m.Called(ctx, id, userID))
}

func (m *MockChatService) ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]chat.ConversationResult, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]chat.ConversationResult), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, userID *uuid.UUID, input chat.SendMessageInput) (*chat.SendMessageResult, error) {
	return m.exchange(m.Called(ctx, userID, input))
}

func (m *MockChatService) StreamMessage(ctx context.Context, userID *uuid.UUID, input chat.SendMessageInput, onText func(chunk string) error) (*chat.SendMessageResult, error) {
	return m.exchange(m.Called(ctx, userID, input, onText))
}

func sampleExchange(content, reply string) *chat.SendMessageResult {
	now := time.Now()
	return &chat.SendMessageResult{
		ConversationID: uuid.New(),
		UserMessage:    chat.MessageResult{ID: uuid.New(), Sequence: 1, Role: "user", Content: content, CreatedAt: now},
		Reply:          chat.MessageResult{ID: uuid.New(), Sequence: 2, Role: "assistant", Content: reply, CreatedAt: now},
	}
}

// emit makes a mocked StreamMessage call feed the given chunks to onText
func emit(chunks ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		onText := args.Get(3).(func(string) error)
		for _, chunk := range chunks {
			_ = onText(chunk)
		}
	}
}

func TestChatHandler_Conversations(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(BaseHandler{}, svc)
	principal := testPrincipal()
	userID := principal.UserID()

	anon := newTestRouter()
	anon.POST("/chat/conversations", h.CreateConversation)
	anon.GET("/chat/conversations", h.ListConversations)
	anon.GET("/chat/conversations/:id", h.GetConversation)

	member := newTestRouter(signedIn(principal))
	member.GET("/chat/conversations", h.ListConversations)
	member.GET("/chat/conversations/:id", h.GetConversation)

	t.Run("anonymous conversation", func(t *testing.T) {
		conv := &chat.ConversationResult{ID: uuid.New(), CustomerEmail: "ada@example.com"}
		svc.On("CreateConversation", mock.Anything, (*uuid.UUID)(nil), chat.CreateConversationInput{CustomerEmail: "ada@example.com"}).
			Return(conv, nil).Once()

		w := doJSON(anon, http.MethodPost, "/chat/conversations", map[string]string{"customer_email": "ada@example.com"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var got ConversationResponse
		decodeResponse(t, w, &got)
		assert.Equal(t, conv.ID, got.ID)
		assert.NotNil(t, got.Messages)
	})

	t.Run("bad customer email", func(t *testing.T) {
		w := doJSON(anon, http.MethodPost, "/chat/conversations", map[string]string{"customer_email": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("listing needs a user", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doJSON(anon, http.MethodGet, "/chat/conversations", nil).Code)
	})

	t.Run("list", func(t *testing.T) {
		svc.On("ListConversations", mock.Anything, userID, chat.DefaultListLimit).
			Return([]chat.ConversationResult{{ID: uuid.New()}}, nil).Once()

		w := doJSON(member, http.MethodGet, "/chat/conversations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got []ConversationResponse
		decodeResponse(t, w, &got)
		assert.Len(t, got, 1)
	})

	t.Run("someone else's conversation", func(t *testing.T) {
		id := uuid.New()
		svc.On("GetConversation", mock.Anything, id, &userID).Return(nil, domainchat.ErrConversationNotFound).Once()

		w := doJSON(member, http.MethodGet, "/chat/conversations/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestChatHandler_Send(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(BaseHandler{}, svc)
	router := newTestRouter()
	router.POST("/chat/send", h.Send)

	t.Run("reply", func(t *testing.T) {
		svc.On("SendMessage", mock.Anything, (*uuid.UUID)(nil), chat.SendMessageInput{Content: "Do you ship to Lisbon?"}).
			Return(sampleExchange("Do you ship to Lisbon?", "Yes."), nil).Once()

		w := doJSON(router, http.MethodPost, "/chat/send", map[string]string{"content": "Do you ship to Lisbon?"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got SendMessageResponse
		decodeResponse(t, w, &got)
		assert.Equal(t, "Yes.", got.Reply.Content)
		assert.Equal(t, "assistant", got.Reply.Role)
		assert.Equal(t, 2, got.Reply.Sequence)
	})

	t.Run("empty content", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doJSON(router, http.MethodPost, "/chat/send", map[string]string{}).Code)
	})

	t.Run("assistant not configured", func(t *testing.T) {
		svc.On("SendMessage", mock.Anything, (*uuid.UUID)(nil), chat.SendMessageInput{Content: "hi"}).
			Return(nil, domainchat.ErrAssistantUnavailable).Once()

		w := doJSON(router, http.MethodPost, "/chat/send", map[string]string{"content": "hi"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("assistant failed", func(t *testing.T) {
		svc.On("SendMessage", mock.Anything, (*uuid.UUID)(nil), chat.SendMessageInput{Content: "boom"}).
			Return(nil, domainchat.ErrAssistantFailed).Once()

		w := doJSON(router, http.MethodPost, "/chat/send", map[string]string{"content": "boom"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "ASSISTANT_ERROR", decodeResponse(t, w, nil).Error.Code)
	})

	svc.AssertExpectations(t)
}

func TestChatHandler_Stream(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(BaseHandler{}, svc)
	router := newTestRouter()
	router.POST("/chat/stream", h.Stream)

	input := func(content string) chat.SendMessageInput { return chat.SendMessageInput{Content: content} }

	t.Run("deltas then done", func(t *testing.T) {
		svc.On("StreamMessage", mock.Anything, (*uuid.UUID)(nil), input("hello"), mock.Anything).
			Run(emit("Hel", "lo!")).
			Return(sampleExchange("hello", "Hello!"), nil).Once()

		w := doJSON(router, http.MethodPost, "/chat/stream", map[string]string{"content": "hello"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		body := w.Body.String()
		first := strings.Index(body, "event:delta")
		done := strings.Index(body, "event:done")
		require.GreaterOrEqual(t, first, 0, body)
		require.Greater(t, done, first, body)
		assert.Equal(t, 2, strings.Count(body, "event:delta"))
		assert.Contains(t, body, `"text":"Hel"`)
		assert.Contains(t, body, `"content":"Hello!"`)
	})

	t.Run("failure before the first chunk is plain json", func(t *testing.T) {
		svc.On("StreamMessage", mock.Anything, (*uuid.UUID)(nil), input("nobody home"), mock.Anything).
			Return(nil, domainchat.ErrAssistantUnavailable).Once()

		w := doJSON(router, http.MethodPost, "/chat/stream", map[string]string{"content": "nobody home"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ASSISTANT_UNAVAILABLE", decodeResponse(t, w, nil).Error.Code)
	})

	t.Run("failure mid-stream becomes an error event", func(t *testing.T) {
		svc.On("StreamMessage", mock.Anything, (*uuid.UUID)(nil), input("cut off"), mock.Anything).
			Run(emit("Par")).
			Return(nil, domainchat.ErrAssistantFailed.WithCause(errors.New("stream reset"))).Once()

		w := doJSON(router, http.MethodPost, "/chat/stream", map[string]string{"content": "cut off"})
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "event:delta")
		assert.Contains(t, body, "event:error")
		assert.Contains(t, body, "ASSISTANT_ERROR")
		assert.NotContains(t, body, "event:done")
	})

	t.Run("empty reply still completes", func(t *testing.T) {
		svc.On("StreamMessage", mock.Anything, (*uuid.UUID)(nil), input("quiet"), mock.Anything).
			Return(sampleExchange("quiet", ""), nil).Once()

		w := doJSON(router, http.MethodPost, "/chat/stream", map[string]string{"content": "quiet"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "event:done")
	})

	svc.AssertExpectations(t)
}
