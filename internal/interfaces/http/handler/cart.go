package handler

import (
	"context"
	"time"

	cartapp "github.com/freely/backend/internal/application/cart"
	"github.com/freely/backend/internal/domain/cart"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartUseCases is the part of the cart service the handler calls
type CartUseCases interface {
	Get(ctx context.Context, identity cart.Identity) (*cartapp.CartResult, error)
	AddItem(ctx context.Context, identity cart.Identity, input cartapp.AddItemInput) (*cartapp.CartResult, error)
	UpdateItemQuantity(ctx context.Context, identity cart.Identity, itemID uuid.UUID, quantity int) (*cartapp.CartResult, error)
	RemoveItem(ctx context.Context, identity cart.Identity, itemID uuid.UUID) (*cartapp.CartResult, error)
	Clear(ctx context.Context, identity cart.Identity) error
}

// AddCartItemRequest adds a product to the cart
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"omitempty,min=1,max=999"`
}

// UpdateCartItemRequest sets the quantity of a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// CartItemResponse is one line of a cart
type CartItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	ProductSlug     string    `json:"product_slug"`
	ImageURL        string    `json:"image_url,omitempty"`
	Quantity        int       `json:"quantity"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
	PriceDisplay    string    `json:"price_display"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	SubtotalDisplay string    `json:"subtotal_display"`
	CreatedAt       time.Time `json:"created_at"`
}

// CartResponse is a cart with its totals
type CartResponse struct {
	ID           uuid.UUID          `json:"id"`
	Items        []CartItemResponse `json:"items"`
	ItemCount    int                `json:"item_count"`
	TotalCents   int64              `json:"total_cents"`
	TotalDisplay string             `json:"total_display"`
	Currency     string             `json:"currency,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toCartResponse(r *cartapp.CartResult) CartResponse {
	items := make([]CartItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = CartItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductSlug:     item.ProductSlug,
			ImageURL:        item.ImageURL,
			Quantity:        item.Quantity,
			PriceCents:      item.PriceCents,
			Currency:        item.Currency,
			PriceDisplay:    item.PriceDisplay,
			SubtotalCents:   item.SubtotalCents,
			SubtotalDisplay: item.SubtotalDisplay,
			CreatedAt:       item.CreatedAt,
		}
	}
	return CartResponse{
		ID:           r.ID,
		Items:        items,
		ItemCount:    r.ItemCount,
		TotalCents:   r.TotalCents,
		TotalDisplay: r.TotalDisplay,
		Currency:     r.Currency,
		UpdatedAt:    r.UpdatedAt,
	}
}

// CartHandler handles the cart of a signed-in user or an anonymous visitor
type CartHandler struct {
	BaseHandler
	carts   CartUseCases
	cookies CookieConfig
}

// NewCartHandler creates a new cart handler
func NewCartHandler(base BaseHandler, carts CartUseCases, cookies CookieConfig) *CartHandler {
	return &CartHandler{BaseHandler: base, carts: carts, cookies: cookies}
}

// identity resolves whose cart the request acts on. With create set, a
// visitor without one is issued an anonymous cart cookie; otherwise found
// reports whether the visitor has a cart identity at all.
func (h *CartHandler) identity(c *gin.Context, create bool) (identity cart.Identity, found bool, ok bool) {
	identity, found, err := h.cookies.CartIdentity(c, create)
	if err != nil {
		h.HandleError(c, err)
		return cart.Identity{}, false, false
	}
	return identity, found, true
}

// Get returns the cart. A visitor without a cart cookie sees an empty cart
// and is not issued one.
//
//	GET /cart
func (h *CartHandler) Get(c *gin.Context) {
	identity, found, ok := h.identity(c, false)
	if !ok {
		return
	}
	if !found {
		h.Success(c, toCartResponse(cartapp.EmptyCartResult()))
		return
	}
	result, err := h.carts.Get(c.Request.Context(), identity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(result))
}

// AddItem adds a product; adding the same product again sums quantities
//
//	POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	identity, _, ok := h.identity(c, true)
	if !ok {
		return
	}
	result, err := h.carts.AddItem(c.Request.Context(), identity, cartapp.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(result))
}

// UpdateItem sets the quantity of a line. Zero or negative is rejected;
// use DELETE to remove a line.
//
//	PATCH /cart/items/:item_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := h.ParamUUID(c, "item_id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	identity, found, ok := h.identity(c, false)
	if !ok {
		return
	}
	if !found {
		h.HandleError(c, cart.ErrItemNotFound)
		return
	}
	result, err := h.carts.UpdateItemQuantity(c.Request.Context(), identity, itemID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(result))
}

// RemoveItem removes a line
//
//	DELETE /cart/items/:item_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := h.ParamUUID(c, "item_id")
	if !ok {
		return
	}
	identity, found, ok := h.identity(c, false)
	if !ok {
		return
	}
	if !found {
		h.HandleError(c, cart.ErrItemNotFound)
		return
	}
	result, err := h.carts.RemoveItem(c.Request.Context(), identity, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(result))
}

// Clear removes every line
//
//	DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	identity, found, ok := h.identity(c, false)
	if !ok {
		return
	}
	if !found {
		h.NoContent(c)
		return
	}
	if err := h.carts.Clear(c.Request.Context(), identity); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
