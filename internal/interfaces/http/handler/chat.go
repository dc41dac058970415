package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/freely/backend/internal/application/chat"
	"github.com/freely/backend/internal/interfaces/http/dto"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatUseCases is the part of the chat service the handler calls
type ChatUseCases interface {
	CreateConversation(ctx context.Context, userID *uuid.UUID, input chat.CreateConversationInput) (*chat.ConversationResult, error)
	GetConversation(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*chat.ConversationResult, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]chat.ConversationResult, error)
	SendMessage(ctx context.Context, userID *uuid.UUID, input chat.SendMessageInput) (*chat.SendMessageResult, error)
	StreamMessage(ctx context.Context, userID *uuid.UUID, input chat.SendMessageInput, onText func(chunk string) error) (*chat.SendMessageResult, error)
}

// CreateConversationRequest opens a conversation with the assistant
type CreateConversationRequest struct {
	OrganizationID *uuid.UUID `json:"organization_id"`
	CustomerEmail  string     `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerName   string     `json:"customer_name" binding:"max=255"`
}

// SendMessageRequest is one user message; without a conversation_id a new
// conversation is started
type SendMessageRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	Content        string     `json:"content" binding:"required"`
}

// MessageResponse is one message of a conversation
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Sequence  int       `json:"sequence"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationResponse is a conversation with its messages in order
type ConversationResponse struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID *uuid.UUID        `json:"organization_id"`
	CustomerEmail  string            `json:"customer_email,omitempty"`
	CustomerName   string            `json:"customer_name,omitempty"`
	Title          string            `json:"title,omitempty"`
	Messages       []MessageResponse `json:"messages"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SendMessageResponse holds both sides of one exchange
type SendMessageResponse struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	UserMessage    MessageResponse `json:"user_message"`
	Reply          MessageResponse `json:"reply"`
}

func toMessageResponse(m chat.MessageResult) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Sequence:  m.Sequence,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toConversationResponse(c chat.ConversationResult) ConversationResponse {
	messages := make([]MessageResponse, len(c.Messages))
	for i := range c.Messages {
		messages[i] = toMessageResponse(c.Messages[i])
	}
	return ConversationResponse{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		CustomerEmail:  c.CustomerEmail,
		CustomerName:   c.CustomerName,
		Title:          c.Title,
		Messages:       messages,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toSendMessageResponse(r *chat.SendMessageResult) SendMessageResponse {
	return SendMessageResponse{
		ConversationID: r.ConversationID,
		UserMessage:    toMessageResponse(r.UserMessage),
		Reply:          toMessageResponse(r.Reply),
	}
}

// ChatHandler handles conversations with the shopping assistant
type ChatHandler struct {
	BaseHandler
	chat ChatUseCases
}

// NewChatHandler creates a new chat handler
func NewChatHandler(base BaseHandler, chat ChatUseCases) *ChatHandler {
	return &ChatHandler{BaseHandler: base, chat: chat}
}

// CreateConversation opens a new conversation
//
//	POST /chat/conversations
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	conv, err := h.chat.CreateConversation(c.Request.Context(), middleware.GetUserID(c), chat.CreateConversationInput{
		OrganizationID: req.OrganizationID,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toConversationResponse(*conv))
}

// ListConversations returns the signed-in user's conversations, newest first
//
//	GET /chat/conversations
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	conversations, err := h.chat.ListConversations(c.Request.Context(), userID, chat.DefaultListLimit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]ConversationResponse, len(conversations))
	for i := range conversations {
		resp[i] = toConversationResponse(conversations[i])
	}
	h.Success(c, resp)
}

// GetConversation returns one conversation with its messages
//
//	GET /chat/conversations/:id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	conv, err := h.chat.GetConversation(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toConversationResponse(*conv))
}

func (r SendMessageRequest) toInput() chat.SendMessageInput {
	return chat.SendMessageInput{
		ConversationID: r.ConversationID,
		OrganizationID: r.OrganizationID,
		Content:        r.Content,
	}
}

// Send posts a message and returns the assistant's complete reply
//
//	POST /chat/send
func (h *ChatHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.chat.SendMessage(c.Request.Context(), middleware.GetUserID(c), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSendMessageResponse(result))
}

// Stream posts a message and streams the reply as server-sent events:
// "delta" events carry text chunks, then a final "done" event carries the
// persisted exchange, or an "error" event if the reply failed mid-stream.
// Failures before the first chunk are plain JSON errors.
//
//	POST /chat/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	var req SendMessageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	streaming := false
	start := func() {
		streaming = true
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}
	onText := func(chunk string) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		if !streaming {
			start()
		}
		c.SSEvent("delta", gin.H{"text": chunk})
		c.Writer.Flush()
		return nil
	}

	result, err := h.chat.StreamMessage(c.Request.Context(), middleware.GetUserID(c), req.toInput(), onText)
	if err != nil {
		if !streaming {
			h.HandleError(c, err)
			return
		}
		if !chat.IsAssistantError(err) {
			_ = c.Error(err)
		}
		_, resp := dto.FromError(err, middleware.GetRequestID(c), h.ExposeErrorDetails)
		c.SSEvent("error", resp.Error)
		c.Writer.Flush()
		return
	}

	if !streaming {
		start()
	}
	c.SSEvent("done", toSendMessageResponse(result))
	c.Writer.Flush()
}
