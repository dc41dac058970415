package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CommerceMetrics counts storefront activity. Order and cart figures come
// from domain events on the bus; chat latency is recorded by the chat
// service directly.
type CommerceMetrics struct {
	logger *zap.Logger

	ordersCreated   *Counter
	orderValueCents *Counter
	payments        *Counter
	cartsMerged     *Counter
	chatReplies     *Counter
	chatDuration    *Histogram
}

// NewCommerceMetrics registers the instruments on meter.
func NewCommerceMetrics(meter metric.Meter, logger *zap.Logger) (*CommerceMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &CommerceMetrics{logger: logger}

	var err error
	if m.ordersCreated, err = NewCounter(meter, "freely_orders_created_total", "Orders created at checkout", "{orders}"); err != nil {
		return nil, err
	}
	if m.orderValueCents, err = NewCounter(meter, "freely_order_value_cents_total", "Order totals in minor currency units", "{cents}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter, "freely_payments_total", "Payment outcomes reported by the gateway", "{payments}"); err != nil {
		return nil, err
	}
	if m.cartsMerged, err = NewCounter(meter, "freely_carts_merged_total", "Anonymous carts merged on login", "{carts}"); err != nil {
		return nil, err
	}
	if m.chatReplies, err = NewCounter(meter, "freely_chat_replies_total", "Assistant replies persisted", "{replies}"); err != nil {
		return nil, err
	}
	if m.chatDuration, err = NewHistogram(meter, "freely_chat_reply_duration_seconds", "Assistant reply latency", "s", ChatDurationBuckets...); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns the events that feed the counters
func (m *CommerceMetrics) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderPaymentFailed,
		cart.EventTypeCartMerged,
	}
}

// Handle updates counters from a domain event
func (m *CommerceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		currency := AttrCurrency.String(strings.ToUpper(e.Currency))
		m.ordersCreated.Inc(ctx, currency)
		m.orderValueCents.Add(ctx, e.TotalCents, currency)
	case *order.OrderPaidEvent:
		m.payments.Inc(ctx, AttrPaymentStatus.String("paid"), AttrCurrency.String(strings.ToUpper(e.Currency)))
	case *order.OrderPaymentFailedEvent:
		m.payments.Inc(ctx, AttrPaymentStatus.String("failed"))
	case *cart.CartMergedEvent:
		m.cartsMerged.Inc(ctx)
	default:
		m.logger.Debug("Ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// RecordChatReply records one assistant turn. outcome is "ok" or "fallback".
func (m *CommerceMetrics) RecordChatReply(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	m.chatReplies.Inc(ctx, AttrChatMode.String(mode), AttrChatOutcome.String(outcome))
	m.chatDuration.RecordDuration(ctx, elapsed, AttrChatMode.String(mode))
}

var _ shared.EventHandler = (*CommerceMetrics)(nil)
