package checkout

import (
	"time"

	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CheckoutInput contains the buyer details submitted at checkout.
// Email and name default to the signed-in user's.
type CheckoutInput struct {
	CustomerEmail   string
	CustomerName    string
	ShippingAddress valueobject.ShippingAddress
	CustomerNotes   string
}

// CheckoutResult is returned once the order and payment intent exist
type CheckoutResult struct {
	OrderID         uuid.UUID
	OrderNumber     string
	ClientSecret    string
	PaymentIntentID string
	TotalCents      int64
	TotalDisplay    string
	Currency        string
}

// PaymentIntentResult is the client side handle of a payment
type PaymentIntentResult struct {
	PaymentIntentID string
	ClientSecret    string
}

// OrderItemResult is one purchased line
type OrderItemResult struct {
	ID                 uuid.UUID
	ProductID          *uuid.UUID
	ProductName        string
	ProductSlug        string
	ProductDescription string
	Quantity           int
	PriceCents         int64
	Currency           string
	PriceDisplay       string
	SubtotalCents      int64
	SubtotalDisplay    string
}

// OrderResult is an order with its items
type OrderResult struct {
	ID                uuid.UUID
	OrderNumber       string
	OrganizationID    uuid.UUID
	UserID            *uuid.UUID
	CustomerEmail     string
	CustomerName      string
	SubtotalCents     int64
	TaxCents          int64
	ShippingCents     int64
	TotalCents        int64
	Currency          string
	SubtotalDisplay   string
	TotalDisplay      string
	PaymentStatus     string
	FulfillmentStatus string
	ShippingAddress   valueobject.ShippingAddress
	CustomerNotes     string
	PaidAt            *time.Time
	FulfilledAt       *time.Time
	Items             []OrderItemResult
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ToOrderResult converts a domain order
func ToOrderResult(o *order.Order) OrderResult {
	items := make([]OrderItemResult, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items = append(items, OrderItemResult{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductSlug:        item.ProductSlug,
			ProductDescription: item.ProductDescription,
			Quantity:           item.Quantity,
			PriceCents:         item.PriceCents,
			Currency:           item.Currency,
			PriceDisplay:       valueobject.FormatCents(item.PriceCents),
			SubtotalCents:      item.SubtotalCents(),
			SubtotalDisplay:    valueobject.FormatCents(item.SubtotalCents()),
		})
	}
	return OrderResult{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		OrganizationID:    o.OrganizationID,
		UserID:            o.UserID,
		CustomerEmail:     o.CustomerEmail,
		CustomerName:      o.CustomerName,
		SubtotalCents:     o.SubtotalCents,
		TaxCents:          o.TaxCents,
		ShippingCents:     o.ShippingCents,
		TotalCents:        o.TotalCents,
		Currency:          o.Currency,
		SubtotalDisplay:   o.SubtotalDisplay(),
		TotalDisplay:      o.TotalDisplay(),
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		ShippingAddress:   o.ShippingAddress,
		CustomerNotes:     o.CustomerNotes,
		PaidAt:            o.PaidAt,
		FulfilledAt:       o.FulfilledAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// ToOrderResults converts a page of domain orders
func ToOrderResults(orders []order.Order) []OrderResult {
	results := make([]OrderResult, 0, len(orders))
	for i := range orders {
		results = append(results, ToOrderResult(&orders[i]))
	}
	return results
}

// WebhookResult reports what a webhook delivery did
type WebhookResult struct {
	EventID   string
	EventType string
	// Processed is false for duplicates and ignored event types
	Processed bool
}
