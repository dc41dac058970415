package order

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus is the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// FulfillmentStatus is the shipping state of an order
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentDelivered   FulfillmentStatus = "delivered"
)

// IsValid reports whether the fulfillment status is known
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentUnfulfilled, FulfillmentFulfilled, FulfillmentShipped, FulfillmentDelivered:
		return true
	}
	return false
}

func (s FulfillmentStatus) rank() int {
	switch s {
	case FulfillmentFulfilled:
		return 1
	case FulfillmentShipped:
		return 2
	case FulfillmentDelivered:
		return 3
	}
	return 0
}

// NumberPrefix is the fixed prefix of every order number
const NumberPrefix = "ORD-"

// Order errors
var (
	ErrOrderNotFound          = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	ErrPaymentIntentMismatch  = shared.NewDomainError("PAYMENT_INTENT_MISMATCH", "Payment intent does not match the order")
	ErrOrderNotPending        = shared.NewDomainError("INVALID_STATE", "Order payment is no longer pending")
	ErrOrderNotPaid           = shared.NewDomainError("INVALID_STATE", "Order has not been paid")
	ErrMixedCurrencies        = cart.ErrMixedCurrencies
	ErrInvalidFulfillment     = shared.NewDomainError("INVALID_FULFILLMENT_STATUS", "Invalid fulfillment status transition")
	ErrOrderNumberUnavailable = shared.NewDomainError("ORDER_NUMBER_UNAVAILABLE", "Could not allocate a unique order number")
)

// Order is an immutable purchase record created from a cart at checkout.
// Only payment and fulfillment state change after creation.
type Order struct {
	shared.TenantAggregateRoot
	OrderNumber       string                      `gorm:"type:varchar(50);not null;uniqueIndex"`
	UserID            *uuid.UUID                  `gorm:"type:uuid;index"`
	CustomerEmail     string                      `gorm:"type:varchar(320)"`
	CustomerName      string                      `gorm:"type:varchar(200)"`
	SubtotalCents     int64                       `gorm:"not null"`
	TaxCents          int64                       `gorm:"not null;default:0"`
	ShippingCents     int64                       `gorm:"not null;default:0"`
	TotalCents        int64                       `gorm:"not null"`
	Currency          string                      `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentStatus     PaymentStatus               `gorm:"type:varchar(50);not null;default:'pending'"`
	FulfillmentStatus FulfillmentStatus           `gorm:"type:varchar(50);not null;default:'unfulfilled'"`
	PaymentIntentID   *string                     `gorm:"column:stripe_payment_intent_id;type:varchar(255);uniqueIndex"`
	ChargeID          *string                     `gorm:"column:stripe_charge_id;type:varchar(255)"`
	ShippingAddress   valueobject.ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	CustomerNotes     string                      `gorm:"type:text"`
	PaidAt            *time.Time
	FulfilledAt       *time.Time
	Items             []OrderItem `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a snapshot of a purchased product. It stays correct when the
// product is later edited or deleted.
type OrderItem struct {
	shared.BaseEntity
	OrderID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID          *uuid.UUID `gorm:"type:uuid;index"`
	ProductName        string     `gorm:"type:varchar(200);not null"`
	ProductSlug        string     `gorm:"type:varchar(200);not null"`
	ProductDescription string     `gorm:"type:text"`
	Quantity           int        `gorm:"not null"`
	PriceCents         int64      `gorm:"not null"`
	Currency           string     `gorm:"type:varchar(3);not null;default:'USD'"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal returns price * quantity
func (i *OrderItem) Subtotal() valueobject.Money {
	return valueobject.FromCents(i.PriceCents, i.Currency).MultiplyQuantity(i.Quantity)
}

// SubtotalCents returns price_cents * quantity
func (i *OrderItem) SubtotalCents() int64 {
	return i.Subtotal().Cents()
}

// Customer carries the buyer details recorded on an order
type Customer struct {
	Email           string
	Name            string
	ShippingAddress valueobject.ShippingAddress
	Notes           string
}

// NewFromCart snapshots the live lines of a cart into a pending order.
// The cart itself is not modified. Tax and shipping are zero.
func NewFromCart(c *cart.Cart, organizationID uuid.UUID, customer Customer) (*Order, error) {
	lines := c.LiveItems()
	if len(lines) == 0 {
		return nil, cart.ErrCartEmpty
	}
	subtotal, err := c.Total()
	if err != nil {
		return nil, err
	}
	if err := customer.ShippingAddress.Validate(); err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}

	number, err := GenerateNumber()
	if err != nil {
		return nil, err
	}

	o := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(organizationID),
		OrderNumber:         number,
		CustomerEmail:       strings.TrimSpace(customer.Email),
		CustomerName:        strings.TrimSpace(customer.Name),
		SubtotalCents:       subtotal.Cents(),
		Currency:            subtotal.Currency().String(),
		PaymentStatus:       PaymentStatusPending,
		FulfillmentStatus:   FulfillmentUnfulfilled,
		ShippingAddress:     customer.ShippingAddress,
		CustomerNotes:       customer.Notes,
		Items:               make([]OrderItem, 0, len(lines)),
	}
	if c.UserID != nil {
		userID := *c.UserID
		o.UserID = &userID
	}

	for _, line := range lines {
		productID := line.ProductID
		item := OrderItem{
			BaseEntity: shared.NewBaseEntity(),
			OrderID:    o.ID,
			ProductID:  &productID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
			Currency:   line.Currency,
		}
		if p := line.Product; p != nil && !p.IsDeleted() {
			item.ProductName = p.Name
			item.ProductSlug = p.Slug
			item.ProductDescription = p.Description
		} else {
			item.ProductName = "Deleted Product"
			item.ProductSlug = "deleted"
		}
		o.Items = append(o.Items, item)
	}
	o.TotalCents = o.SubtotalCents + o.TaxCents + o.ShippingCents

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// GenerateNumber returns a fresh order number: the prefix followed by six
// upper-case hex characters. Uniqueness is enforced by the store.
func GenerateNumber() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", shared.NewDomainError("ORDER_NUMBER_ERROR", "Failed to generate order number").WithCause(err)
	}
	return NumberPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// RegenerateNumber replaces the order number after a collision
func (o *Order) RegenerateNumber() error {
	number, err := GenerateNumber()
	if err != nil {
		return err
	}
	o.OrderNumber = number
	return nil
}

// AttachPaymentIntent records the gateway intent used to pay the order
func (o *Order) AttachPaymentIntent(intentID string) error {
	if o.PaymentStatus != PaymentStatusPending {
		return ErrOrderNotPending
	}
	o.PaymentIntentID = &intentID
	o.Touch()
	o.IncrementVersion()
	return nil
}

// verifyIntent checks a gateway intent against the stored one
func (o *Order) verifyIntent(intentID string) error {
	if o.PaymentIntentID == nil || intentID == "" || *o.PaymentIntentID != intentID {
		return ErrPaymentIntentMismatch
	}
	return nil
}

// ConfirmPayment marks the order paid. The intent must match the stored one;
// on mismatch the order is left unchanged.
func (o *Order) ConfirmPayment(intentID string, paidAt time.Time) error {
	if err := o.verifyIntent(intentID); err != nil {
		return err
	}
	if o.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if o.PaymentStatus != PaymentStatusPending && o.PaymentStatus != PaymentStatusFailed {
		return ErrOrderNotPending
	}
	at := paidAt.UTC()
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &at
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// MarkPaymentFailed marks a pending order's payment as failed
func (o *Order) MarkPaymentFailed(intentID, reason string) error {
	if err := o.verifyIntent(intentID); err != nil {
		return err
	}
	if o.PaymentStatus == PaymentStatusFailed {
		return nil
	}
	if o.PaymentStatus != PaymentStatusPending {
		return ErrOrderNotPending
	}
	o.PaymentStatus = PaymentStatusFailed
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPaymentFailedEvent(o, reason))
	return nil
}

// UpdateFulfillment advances the fulfillment status of a paid order.
// Statuses only move forward.
func (o *Order) UpdateFulfillment(status FulfillmentStatus) error {
	if !status.IsValid() || status.rank() <= o.FulfillmentStatus.rank() {
		return ErrInvalidFulfillment
	}
	if o.PaymentStatus != PaymentStatusPaid {
		return ErrOrderNotPaid
	}
	if o.FulfilledAt == nil {
		now := time.Now().UTC()
		o.FulfilledAt = &now
	}
	o.FulfillmentStatus = status
	o.Touch()
	o.IncrementVersion()
	return nil
}

// IsPaid reports whether payment succeeded
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// BelongsToUser reports whether the order was placed by the user
func (o *Order) BelongsToUser(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// Total returns the amount charged for the order
func (o *Order) Total() valueobject.Money {
	return valueobject.FromCents(o.TotalCents, o.Currency)
}

// SubtotalDisplay renders the subtotal
func (o *Order) SubtotalDisplay() string {
	return valueobject.FromCents(o.SubtotalCents, o.Currency).Display()
}

// TotalDisplay renders the total
func (o *Order) TotalDisplay() string {
	return o.Total().Display()
}
