package handler

import (
	"context"

	"github.com/freely/backend/internal/application/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductUseCases is the part of the product service the handler calls
type ProductUseCases interface {
	Create(ctx context.Context, organizationID uuid.UUID, input catalog.CreateProductInput) (*catalog.ProductResult, error)
	Get(ctx context.Context, organizationID, id uuid.UUID) (*catalog.ProductResult, error)
	List(ctx context.Context, organizationID uuid.UUID, query catalog.ProductListQuery) (shared.Paginated[catalog.ProductResult], error)
	ListStoreProducts(ctx context.Context, organizationSlug string, query catalog.ProductListQuery) (shared.Paginated[catalog.ProductResult], error)
	Update(ctx context.Context, organizationID, id uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductResult, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
	Search(ctx context.Context, organizationID uuid.UUID, q string, page, pageSize int) (shared.Paginated[catalog.ProductResult], error)
}

// ImageUseCases is the part of the image service the handler calls
type ImageUseCases interface {
	CreateUploadURL(ctx context.Context, organizationID, productID uuid.UUID, input catalog.ImageUploadInput) (*catalog.PresignedUpload, error)
	AttachImage(ctx context.Context, organizationID, productID uuid.UUID, storageKey string) (*catalog.ProductResult, error)
}

// ProductHandler handles a merchant's catalog and the public storefront
type ProductHandler struct {
	BaseHandler
	products ProductUseCases
	images   ImageUseCases
}

// NewProductHandler creates a new product handler
func NewProductHandler(base BaseHandler, products ProductUseCases, images ImageUseCases) *ProductHandler {
	return &ProductHandler{BaseHandler: base, products: products, images: images}
}

// Create lists a new product in the active organization
//
//	POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	var req CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Create(c.Request.Context(), orgID, catalog.CreateProductInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		Currency:       req.Currency,
		ImageURLs:      req.ImageURLs,
		StockAvailable: req.StockAvailable,
		IsAvailable:    req.IsAvailable,
		IsDigital:      req.IsDigital,
		CategoryIDs:    req.CategoryIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProductResponse(*product))
}

// Get returns one product of the active organization
//
//	GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.Get(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(*product))
}

// List returns a filtered page of the active organization's products
//
//	GET /products
func (h *ProductHandler) List(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	var req ProductListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.products.List(c.Request.Context(), orgID, req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toProductResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update applies a partial update
//
//	PATCH /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Update(c.Request.Context(), orgID, id, catalog.UpdateProductInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		Currency:       req.Currency,
		ImageURLs:      req.ImageURLs,
		StockAvailable: req.StockAvailable,
		IsAvailable:    req.IsAvailable,
		IsDigital:      req.IsDigital,
		CategoryIDs:    req.CategoryIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(*product))
}

// Delete tombstones a product
//
//	DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), orgID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Search runs a fuzzy full-text search over the active organization's products
//
//	GET /products/search?q=
func (h *ProductHandler) Search(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	var req ProductSearchRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.products.Search(c.Request.Context(), orgID, req.Query, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toProductResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// CreateImageUploadURL issues a presigned URL for a product image
//
//	POST /products/:id/images/upload-url
func (h *ProductHandler) CreateImageUploadURL(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ImageUploadRequest
	if !h.BindJSON(c, &req) {
		return
	}
	upload, err := h.images.CreateUploadURL(c.Request.Context(), orgID, id, catalog.ImageUploadInput{ContentType: req.ContentType})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ImageUploadResponse{
		UploadURL:  upload.UploadURL,
		Method:     upload.Method,
		StorageKey: upload.StorageKey,
		PublicURL:  upload.PublicURL,
		ExpiresAt:  upload.ExpiresAt,
	})
}

// AttachImage appends an uploaded image to the product
//
//	POST /products/:id/images
func (h *ProductHandler) AttachImage(c *gin.Context) {
	orgID, ok := h.ActiveOrganizationID(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AttachImageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.images.AttachImage(c.Request.Context(), orgID, id, req.StorageKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(*product))
}

// ListStore returns a store's available products without authentication
//
//	GET /stores/:org_slug/products
func (h *ProductHandler) ListStore(c *gin.Context) {
	var req ProductListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.products.ListStoreProducts(c.Request.Context(), c.Param("org_slug"), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toProductResponses(page.Items), page.Total, page.Page, page.PageSize)
}
