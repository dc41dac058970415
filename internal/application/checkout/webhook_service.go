package checkout

import (
	"context"
	"errors"

	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookService handles payment gateway webhook deliveries. Each gateway
// event ID is handled at most once.
type WebhookService struct {
	checkout    *CheckoutService
	gateway     order.PaymentGateway
	idempotency shared.IdempotencyStore
	config      shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService.
// A nil store disables deduplication.
func NewWebhookService(
	checkout *CheckoutService,
	gateway order.PaymentGateway,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	logger *zap.Logger,
) *WebhookService {
	if config.TTL <= 0 {
		config.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &WebhookService{
		checkout:    checkout,
		gateway:     gateway,
		idempotency: store,
		config:      config,
		logger:      logger,
	}
}

// ProcessWebhook verifies and dispatches one delivery. Verification happens
// before anything is read or written.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.gateway == nil {
		return nil, order.ErrPaymentNotConfigured
	}
	if signature == "" {
		return nil, order.ErrInvalidWebhook.WithMessage("Missing signature header")
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected webhook delivery", zap.Error(err))
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "ProcessWebhook",
		telemetry.SpanAttrEventID, event.ID,
		"event_type", event.Type)
	defer span.End()

	s.logger.Info("Processing payment webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}

	claimed, err := s.claim(ctx, event.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !claimed {
		s.logger.Info("Duplicate webhook event ignored", zap.String("event_id", event.ID))
		telemetry.AddEvent(span, "duplicate")
		return result, nil
	}

	processed, err := s.dispatch(ctx, event)
	if err != nil {
		telemetry.RecordError(span, err)
		s.release(ctx, event.ID)
		return nil, err
	}
	result.Processed = processed
	return result, nil
}

// claim records the event in the ledger. It returns false for an event that
// was already handled.
func (s *WebhookService) claim(ctx context.Context, eventID string) (bool, error) {
	if s.idempotency == nil || !s.config.Enabled || eventID == "" {
		return true, nil
	}
	return s.idempotency.MarkProcessed(ctx, eventID, s.config.TTL)
}

func (s *WebhookService) release(ctx context.Context, eventID string) {
	if s.idempotency == nil || !s.config.Enabled || eventID == "" {
		return
	}
	if err := s.idempotency.Release(ctx, eventID); err != nil {
		s.logger.Error("Failed to release webhook event", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *WebhookService) dispatch(ctx context.Context, event *order.PaymentEvent) (bool, error) {
	switch event.Type {
	case order.PaymentEventSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	case order.PaymentEventFailed:
		return s.handlePaymentFailed(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type", zap.String("event_type", event.Type))
		return false, nil
	}
}

func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, event *order.PaymentEvent) (bool, error) {
	orderID, ok := s.orderOf(event)
	if !ok {
		return false, nil
	}
	_, err := s.checkout.ConfirmPayment(ctx, orderID, event.IntentID, event.ChargeID)
	if errors.Is(err, order.ErrOrderNotFound) {
		s.logger.Warn("Order not found for payment", zap.String("order_id", orderID.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *WebhookService) handlePaymentFailed(ctx context.Context, event *order.PaymentEvent) (bool, error) {
	orderID, ok := s.orderOf(event)
	if !ok {
		return false, nil
	}
	reason := event.FailureMessage
	if reason == "" {
		reason = "payment failed"
	}
	_, err := s.checkout.MarkPaymentFailed(ctx, orderID, event.IntentID, reason)
	if errors.Is(err, order.ErrOrderNotFound) {
		s.logger.Warn("Order not found for failed payment", zap.String("order_id", orderID.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// orderOf reads the order ID from the intent metadata
func (s *WebhookService) orderOf(event *order.PaymentEvent) (uuid.UUID, bool) {
	raw := event.OrderID()
	if raw == "" {
		s.logger.Warn("Payment event without order_id metadata",
			zap.String("event_id", event.ID),
			zap.String("payment_intent_id", event.IntentID))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn("Payment event with malformed order_id",
			zap.String("event_id", event.ID),
			zap.String("order_id", raw))
		return uuid.Nil, false
	}
	return id, true
}
