package cart

import (
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AddItemInput contains the input for adding a product to a cart
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CartItemResult is one live line of a cart
type CartItemResult struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	ProductName     string
	ProductSlug     string
	ImageURL        string
	Quantity        int
	PriceCents      int64
	Currency        string
	PriceDisplay    string
	SubtotalCents   int64
	SubtotalDisplay string
	CreatedAt       time.Time
}

// CartResult is a cart with its live lines and totals
type CartResult struct {
	ID           uuid.UUID
	UserID       *uuid.UUID
	Items        []CartItemResult
	ItemCount    int
	TotalCents   int64
	TotalDisplay string
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToCartResult converts a domain cart
func ToCartResult(c *cart.Cart) *CartResult {
	live := c.LiveItems()
	items := make([]CartItemResult, 0, len(live))
	for _, item := range live {
		r := CartItemResult{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceCents:      item.PriceCents,
			Currency:        item.Currency,
			PriceDisplay:    item.PriceDisplay(),
			SubtotalCents:   item.SubtotalCents(),
			SubtotalDisplay: item.SubtotalDisplay(),
			CreatedAt:       item.CreatedAt,
		}
		if p := item.Product; p != nil {
			r.ProductName = p.Name
			r.ProductSlug = p.Slug
			if len(p.ImageURLs) > 0 {
				r.ImageURL = p.ImageURLs[0]
			}
		}
		items = append(items, r)
	}
	return &CartResult{
		ID:           c.ID,
		UserID:       c.UserID,
		Items:        items,
		ItemCount:    c.ItemCount(),
		TotalCents:   c.TotalCents(),
		TotalDisplay: c.TotalDisplay(),
		Currency:     c.Currency(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// EmptyCartResult is the cart shown to a visitor who has none yet
func EmptyCartResult() *CartResult {
	return &CartResult{
		Items:        []CartItemResult{},
		TotalDisplay: valueobject.FormatCents(0),
		Currency:     valueobject.DefaultCurrency.String(),
	}
}
