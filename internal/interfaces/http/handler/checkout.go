package handler

import (
	"context"

	"github.com/freely/backend/internal/application/checkout"
	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutUseCases is the buyer side of the checkout service
type CheckoutUseCases interface {
	Checkout(ctx context.Context, buyer cart.Identity, userID *uuid.UUID, input checkout.CheckoutInput) (*checkout.CheckoutResult, error)
	GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*checkout.OrderResult, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*checkout.OrderResult, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[checkout.OrderResult], error)
}

// MerchantOrderUseCases is the merchant side of the checkout service
type MerchantOrderUseCases interface {
	ListOrganizationOrders(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (shared.Paginated[checkout.OrderResult], error)
	UpdateFulfillment(ctx context.Context, organizationID, orderID uuid.UUID, status string) (*checkout.OrderResult, error)
}

// CheckoutHandler turns carts into orders and serves order lookups
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutUseCases
	cookies  CookieConfig
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(base BaseHandler, checkout CheckoutUseCases, cookies CookieConfig) *CheckoutHandler {
	return &CheckoutHandler{BaseHandler: base, checkout: checkout, cookies: cookies}
}

// Checkout creates an order and a payment intent from the caller's cart
//
//	POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	buyer, ok, err := h.cookies.CartIdentity(c, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !ok {
		h.HandleError(c, cart.ErrCartEmpty)
		return
	}

	input := checkout.CheckoutInput{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerNotes: req.CustomerNotes,
	}
	if a := req.ShippingAddress; a != nil {
		addr, err := valueobject.NewShippingAddress(a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country)
		if err != nil {
			h.HandleError(c, shared.ErrInvalidInput.WithMessage(err.Error()))
			return
		}
		input.ShippingAddress = addr
	}

	result, err := h.checkout.Checkout(c.Request.Context(), buyer, middleware.GetUserID(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCheckoutResponse(result))
}

// ListOrders returns the signed-in buyer's orders, newest first
//
//	GET /checkout/orders
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	page, err := h.checkout.ListUserOrders(c.Request.Context(), userID, pageParams(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toOrderResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetOrder returns one order. Signed-in callers only see their own.
//
//	GET /checkout/orders/:id
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.checkout.GetOrder(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(*o))
}

// GetOrderByNumber serves order confirmation pages
//
//	GET /checkout/orders/number/:order_number
func (h *CheckoutHandler) GetOrderByNumber(c *gin.Context) {
	o, err := h.checkout.GetOrderByNumber(c.Request.Context(), c.Param("order_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(*o))
}
