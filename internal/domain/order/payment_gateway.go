package order

import (
	"context"

	"github.com/freely/backend/internal/domain/shared"
)

// Payment gateway errors
var (
	ErrPaymentNotConfigured = shared.NewDomainError("PAYMENT_NOT_CONFIGURED", "Payment processing is not configured")
	ErrPaymentGateway       = shared.NewDomainError("PAYMENT_GATEWAY_ERROR", "Payment gateway error")
	ErrInvalidWebhook       = shared.NewDomainError("INVALID_WEBHOOK", "Invalid webhook payload or signature")
)

// Gateway event types dispatched by the webhook handler
const (
	PaymentEventSucceeded = "payment_intent.succeeded"
	PaymentEventFailed    = "payment_intent.payment_failed"
)

// PaymentIntentRequest asks the gateway for a client-confirmable payment
type PaymentIntentRequest struct {
	AmountCents    int64
	Currency       string // lower-case ISO 4217
	Metadata       map[string]string
	ReceiptEmail   string
	Description    string
	IdempotencyKey string
}

// PaymentIntent is the gateway handle for a payment
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// PaymentEvent is a verified webhook notification
type PaymentEvent struct {
	ID             string // gateway event ID, the idempotency key
	Type           string
	IntentID       string
	ChargeID       string
	Metadata       map[string]string
	FailureMessage string
}

// OrderID returns the order ID recorded in the intent metadata
func (e *PaymentEvent) OrderID() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata["order_id"]
}

// PaymentGateway is the port to the external payment processor.
// Implementations live in the infrastructure layer.
type PaymentGateway interface {
	// CreatePaymentIntent creates a payment intent for the amount
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)

	// ParseWebhook verifies the signature and decodes an event.
	// It returns ErrInvalidWebhook for a bad signature or payload.
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)
}
