// Package payment adapts the Stripe API to the order.PaymentGateway port.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements order.PaymentGateway with Stripe payment intents.
// It holds its own API client instead of the package-global stripe.Key.
type StripeGateway struct {
	api           *client.API
	configured    bool
	webhookSecret string
	logger        *zap.Logger
}

// StripeOption configures a StripeGateway
type StripeOption func(*stripe.Backends)

// WithBackend routes API calls through b. Tests use it to stub Stripe.
func WithBackend(b stripe.Backend) StripeOption {
	return func(backends *stripe.Backends) {
		backends.API = b
	}
}

// NewStripeGateway creates a gateway. An empty secret key yields a gateway
// that answers every intent request with order.ErrPaymentNotConfigured.
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger, opts ...StripeOption) *StripeGateway {
	var backends *stripe.Backends
	if len(opts) > 0 {
		backends = &stripe.Backends{
			API:     stripe.GetBackend(stripe.APIBackend),
			Connect: stripe.GetBackend(stripe.ConnectBackend),
			Uploads: stripe.GetBackend(stripe.UploadsBackend),
		}
		for _, opt := range opts {
			opt(backends)
		}
	}

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, backends),
		configured:    cfg.SecretKey != "",
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreatePaymentIntent creates an automatic-payment-methods intent
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req order.PaymentIntentRequest) (*order.PaymentIntent, error) {
	if !g.configured {
		return nil, order.ErrPaymentNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe payment intent",
			zap.Int64("amount_cents", req.AmountCents),
			zap.String("currency", req.Currency),
			zap.Error(err))
		return nil, order.ErrPaymentGateway.WithMessage(gatewayMessage(err)).WithCause(err)
	}

	g.logger.Info("Created Stripe payment intent",
		zap.String("payment_intent_id", pi.ID),
		zap.String("order_id", req.Metadata["order_id"]))

	return &order.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Events other than payment intents are returned without intent fields.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*order.PaymentEvent, error) {
	if g.webhookSecret == "" {
		return nil, order.ErrPaymentNotConfigured.WithMessage("Webhook secret is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, order.ErrInvalidWebhook.WithCause(err)
	}

	result := &order.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if !strings.HasPrefix(result.Type, "payment_intent.") || event.Data == nil {
		return result, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, order.ErrInvalidWebhook.WithMessage("Invalid payment intent payload").WithCause(err)
	}
	result.IntentID = pi.ID
	result.Metadata = pi.Metadata
	if pi.LatestCharge != nil {
		result.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		result.FailureMessage = pi.LastPaymentError.Msg
	}
	return result, nil
}

// gatewayMessage extracts Stripe's user-facing message when there is one
func gatewayMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return order.ErrPaymentGateway.Message
}

var _ order.PaymentGateway = (*StripeGateway)(nil)
