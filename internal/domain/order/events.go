package order

import (
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeOrder is the aggregate type of orders
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderPaid          = "OrderPaid"
	EventTypeOrderPaymentFailed = "OrderPaymentFailed"
)

// OrderCreatedEvent is published when checkout creates an order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string     `json:"order_number"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	TotalCents  int64      `json:"total_cents"`
	Currency    string     `json:"currency"`
	ItemCount   int        `json:"item_count"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID, o.OrganizationID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		ItemCount:       len(o.Items),
	}
}

// OrderPaidEvent is published when the gateway confirms payment
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber     string `json:"order_number"`
	PaymentIntentID string `json:"payment_intent_id"`
	TotalCents      int64  `json:"total_cents"`
	Currency        string `json:"currency"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID, o.OrganizationID),
		OrderNumber:     o.OrderNumber,
		PaymentIntentID: *o.PaymentIntentID,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
	}
}

// OrderPaymentFailedEvent is published when the gateway reports a failed payment
type OrderPaymentFailedEvent struct {
	shared.BaseDomainEvent
	OrderNumber     string `json:"order_number"`
	PaymentIntentID string `json:"payment_intent_id"`
	Reason          string `json:"reason,omitempty"`
}

// NewOrderPaymentFailedEvent creates a new OrderPaymentFailedEvent
func NewOrderPaymentFailedEvent(o *Order, reason string) *OrderPaymentFailedEvent {
	return &OrderPaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaymentFailed, AggregateTypeOrder, o.ID, o.OrganizationID),
		OrderNumber:     o.OrderNumber,
		PaymentIntentID: *o.PaymentIntentID,
		Reason:          reason,
	}
}
