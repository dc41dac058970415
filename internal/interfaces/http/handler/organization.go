package handler

import (
	"context"
	"time"

	"github.com/freely/backend/internal/application/identity"
	domain "github.com/freely/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrganizationUseCases is the part of the organization service the handler calls
type OrganizationUseCases interface {
	Create(ctx context.Context, userID uuid.UUID, input identity.CreateOrganizationInput) (*identity.OrganizationInfo, error)
	List(ctx context.Context, userID uuid.UUID) ([]identity.OrganizationInfo, error)
	Resolve(ctx context.Context, userID uuid.UUID, requested string) (*domain.Organization, error)
}

// CreateOrganizationRequest represents a request to open a store
type CreateOrganizationRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=255"`
	Slug    string `json:"slug" binding:"required,slug,max=100"`
	Email   string `json:"email" binding:"omitempty,email,max=255"`
	Website string `json:"website" binding:"omitempty,url,max=500"`
	Bio     string `json:"bio" binding:"omitempty,max=2000"`
}

// OrganizationResponse is the public view of an organization
type OrganizationResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	IsActive    bool       `json:"is_active"`
	OnboardedAt *time.Time `json:"onboarded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toOrganizationResponse(o identity.OrganizationInfo) OrganizationResponse {
	return OrganizationResponse{
		ID:          o.ID,
		Name:        o.Name,
		Slug:        o.Slug,
		Email:       o.Email,
		Website:     o.Website,
		Bio:         o.Bio,
		AvatarURL:   o.AvatarURL,
		IsActive:    o.IsActive,
		OnboardedAt: o.OnboardedAt,
		CreatedAt:   o.CreatedAt,
	}
}

// OrganizationHandler handles store creation, memberships and merchant orders
type OrganizationHandler struct {
	BaseHandler
	organizations OrganizationUseCases
	orders        MerchantOrderUseCases
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(base BaseHandler, organizations OrganizationUseCases, orders MerchantOrderUseCases) *OrganizationHandler {
	return &OrganizationHandler{BaseHandler: base, organizations: organizations, orders: orders}
}

// Create opens a store; the caller becomes its first member
//
//	POST /organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	var req CreateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := h.organizations.Create(c.Request.Context(), userID, identity.CreateOrganizationInput{
		Name:    req.Name,
		Slug:    req.Slug,
		Email:   req.Email,
		Website: req.Website,
		Bio:     req.Bio,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOrganizationResponse(*org))
}

// List returns the caller's organizations
//
//	GET /organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	orgs, err := h.organizations.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]OrganizationResponse, len(orgs))
	for i := range orgs {
		resp[i] = toOrganizationResponse(orgs[i])
	}
	h.Success(c, resp)
}

// member resolves the :org_id path parameter against the caller's memberships
func (h *OrganizationHandler) member(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return uuid.Nil, false
	}
	if _, ok := h.ParamUUID(c, "org_id"); !ok {
		return uuid.Nil, false
	}
	org, err := h.organizations.Resolve(c.Request.Context(), userID, c.Param("org_id"))
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	return org.ID, true
}

// ListOrders returns a page of the store's orders, newest first
//
//	GET /organizations/:org_id/orders
func (h *OrganizationHandler) ListOrders(c *gin.Context) {
	orgID, ok := h.member(c)
	if !ok {
		return
	}
	filter := pageParams(c)
	page, err := h.orders.ListOrganizationOrders(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toOrderResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// UpdateFulfillment advances the shipping state of a paid order
//
//	PATCH /organizations/:org_id/orders/:id/fulfillment
func (h *OrganizationHandler) UpdateFulfillment(c *gin.Context) {
	orgID, ok := h.member(c)
	if !ok {
		return
	}
	orderID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateFulfillmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.orders.UpdateFulfillment(c.Request.Context(), orgID, orderID, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(*o))
}
