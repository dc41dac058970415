package handler

import (
	"context"

	"github.com/freely/backend/internal/application/catalog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CategoryUseCases is the part of the category service the handler calls
type CategoryUseCases interface {
	Create(ctx context.Context, organizationID uuid.UUID, input catalog.CategoryInput) (*catalog.CategoryResult, error)
	Get(ctx context.Context, organizationID, id uuid.UUID) (*catalog.CategoryResult, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]catalog.CategoryResult, error)
	Update(ctx context.Context, organizationID, id uuid.UUID, input catalog.CategoryInput) (*catalog.CategoryResult, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// CategoryHandler handles the active organization's product categories
type CategoryHandler struct {
	BaseHandler
	categories CategoryUseCases
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(base BaseHandler, categories CategoryUseCases) *CategoryHandler {
	return &CategoryHandler{BaseHandler: base, categories: categories}
}

func (r CategoryRequest) toInput() catalog.CategoryInput {
	return catalog.CategoryInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

// Create adds a category
//
//	POST /products/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	category, err := h.categories.Create(c.Request.Context(), orgID, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCategoryResponse(*category))
}

// Get returns one category
//
//	GET /products/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCategoryResponse(*category))
}

// List returns all categories ordered by name
//
//	GET /products/categories
func (h *CategoryHandler) List(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	categories, err := h.categories.List(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCategoryResponses(categories))
}

// Update applies a partial update
//
//	PATCH /products/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	category, err := h.categories.Update(c.Request.Context(), orgID, id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCategoryResponse(*category))
}

// Delete removes a category; its products stay
//
//	DELETE /products/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), orgID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
