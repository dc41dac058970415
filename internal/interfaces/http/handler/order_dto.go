package handler

import (
	"time"

	"github.com/freely/backend/internal/application/checkout"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ShippingAddressRequest is a postal address submitted at checkout
type ShippingAddressRequest struct {
	Line1      string `json:"line1" binding:"max=255"`
	Line2      string `json:"line2" binding:"max=255"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"omitempty,iso3166_1_alpha2"`
}

// CheckoutRequest represents a checkout of the current cart
type CheckoutRequest struct {
	CustomerEmail   string                  `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerName    string                  `json:"customer_name" binding:"max=255"`
	ShippingAddress *ShippingAddressRequest `json:"shipping_address"`
	CustomerNotes   string                  `json:"customer_notes" binding:"max=2000"`
}

// UpdateFulfillmentRequest moves an order along its shipping states
type UpdateFulfillmentRequest struct {
	Status string `json:"status" binding:"required,oneof=unfulfilled fulfilled shipped delivered"`
}

// CheckoutResponse carries what the client needs to confirm the payment
type CheckoutResponse struct {
	OrderID         uuid.UUID `json:"order_id"`
	OrderNumber     string    `json:"order_number"`
	ClientSecret    string    `json:"client_secret"`
	PaymentIntentID string    `json:"payment_intent_id"`
	TotalCents      int64     `json:"total_cents"`
	TotalDisplay    string    `json:"total_display"`
	Currency        string    `json:"currency"`
}

// OrderItemResponse is one purchased line
type OrderItemResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ProductID          *uuid.UUID `json:"product_id"`
	ProductName        string     `json:"product_name"`
	ProductSlug        string     `json:"product_slug"`
	ProductDescription string     `json:"product_description,omitempty"`
	Quantity           int        `json:"quantity"`
	PriceCents         int64      `json:"price_cents"`
	Currency           string     `json:"currency"`
	PriceDisplay       string     `json:"price_display"`
	SubtotalCents      int64      `json:"subtotal_cents"`
	SubtotalDisplay    string     `json:"subtotal_display"`
}

// OrderResponse is an order with its items
type OrderResponse struct {
	ID                uuid.UUID                   `json:"id"`
	OrderNumber       string                      `json:"order_number"`
	OrganizationID    uuid.UUID                   `json:"organization_id"`
	UserID            *uuid.UUID                  `json:"user_id"`
	CustomerEmail     string                      `json:"customer_email"`
	CustomerName      string                      `json:"customer_name"`
	SubtotalCents     int64                       `json:"subtotal_cents"`
	TaxCents          int64                       `json:"tax_cents"`
	ShippingCents     int64                       `json:"shipping_cents"`
	TotalCents        int64                       `json:"total_cents"`
	Currency          string                      `json:"currency"`
	SubtotalDisplay   string                      `json:"subtotal_display"`
	TotalDisplay      string                      `json:"total_display"`
	PaymentStatus     string                      `json:"payment_status"`
	FulfillmentStatus string                      `json:"fulfillment_status"`
	ShippingAddress   valueobject.ShippingAddress `json:"shipping_address"`
	CustomerNotes     string                      `json:"customer_notes,omitempty"`
	PaidAt            *time.Time                  `json:"paid_at"`
	FulfilledAt       *time.Time                  `json:"fulfilled_at"`
	Items             []OrderItemResponse         `json:"items"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

func toCheckoutResponse(r *checkout.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		OrderID:         r.OrderID,
		OrderNumber:     r.OrderNumber,
		ClientSecret:    r.ClientSecret,
		PaymentIntentID: r.PaymentIntentID,
		TotalCents:      r.TotalCents,
		TotalDisplay:    r.TotalDisplay,
		Currency:        r.Currency,
	}
}

func toOrderResponse(o checkout.OrderResult) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductSlug:        item.ProductSlug,
			ProductDescription: item.ProductDescription,
			Quantity:           item.Quantity,
			PriceCents:         item.PriceCents,
			Currency:           item.Currency,
			PriceDisplay:       item.PriceDisplay,
			SubtotalCents:      item.SubtotalCents,
			SubtotalDisplay:    item.SubtotalDisplay,
		}
	}
	return OrderResponse{
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
		SubtotalDisplay:   o.SubtotalDisplay,
		TotalDisplay:      o.TotalDisplay,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		ShippingAddress:   o.ShippingAddress,
		CustomerNotes:     o.CustomerNotes,
		PaidAt:            o.PaidAt,
		FulfilledAt:       o.FulfilledAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toOrderResponses(orders []checkout.OrderResult) []OrderResponse {
	resp := make([]OrderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(orders[i])
	}
	return resp
}
