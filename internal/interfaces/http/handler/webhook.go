package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/freely/backend/internal/application/checkout"
	"github.com/freely/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Stripe webhook payloads are small
const maxWebhookPayloadSize = 65536

// WebhookUseCases verifies and dispatches payment gateway deliveries
type WebhookUseCases interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*checkout.WebhookResult, error)
}

// WebhookResponse acknowledges a delivery
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Processed bool   `json:"processed"`
}

// StripeWebhookHandler receives Stripe events. It is authenticated by the
// Stripe-Signature header rather than a session.
type StripeWebhookHandler struct {
	BaseHandler
	webhooks WebhookUseCases
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(base BaseHandler, webhooks WebhookUseCases) *StripeWebhookHandler {
	return &StripeWebhookHandler{BaseHandler: base, webhooks: webhooks}
}

// Handle verifies the raw body against the signature and dispatches the
// event. Duplicates are acknowledged with processed=false. Failures that
// should be retried by Stripe return a non-2xx status.
//
//	POST /webhooks/stripe
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	// The signature covers the exact bytes, so the body is read raw
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}

	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Processed: result.Processed,
	})
}
