package handler

import (
	"time"

	"github.com/freely/backend/internal/application/catalog"
	"github.com/google/uuid"
)

// CreateProductRequest represents a request to list a product
type CreateProductRequest struct {
	Name           string      `json:"name" binding:"required,min=1,max=255"`
	Slug           string      `json:"slug" binding:"omitempty,slug,max=255"`
	Description    string      `json:"description" binding:"max=10000"`
	PriceCents     int64       `json:"price_cents" binding:"gte=0"`
	Currency       string      `json:"currency" binding:"omitempty,iso4217"`
	ImageURLs      []string    `json:"image_urls" binding:"omitempty,max=20,dive,url"`
	StockAvailable *int64      `json:"stock_available" binding:"omitempty,gte=0"`
	IsAvailable    *bool       `json:"is_available"`
	IsDigital      bool        `json:"is_digital"`
	CategoryIDs    []uuid.UUID `json:"category_ids"`
}

// UpdateProductRequest is a partial product update; omitted fields keep their value
type UpdateProductRequest struct {
	Name           *string      `json:"name" binding:"omitempty,min=1,max=255"`
	Slug           *string      `json:"slug" binding:"omitempty,slug,max=255"`
	Description    *string      `json:"description" binding:"omitempty,max=10000"`
	PriceCents     *int64       `json:"price_cents" binding:"omitempty,gte=0"`
	Currency       *string      `json:"currency" binding:"omitempty,iso4217"`
	ImageURLs      []string     `json:"image_urls" binding:"omitempty,max=20,dive,url"`
	StockAvailable *int64       `json:"stock_available" binding:"omitempty,gte=0"`
	IsAvailable    *bool        `json:"is_available"`
	IsDigital      *bool        `json:"is_digital"`
	CategoryIDs    *[]uuid.UUID `json:"category_ids"`
}

// ProductListRequest holds product list filters
type ProductListRequest struct {
	CategoryID  string `form:"category_id" binding:"omitempty,uuid"`
	Search      string `form:"search" binding:"max=100"`
	IsAvailable *bool  `form:"is_available"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (r ProductListRequest) toQuery() catalog.ProductListQuery {
	var categoryID *uuid.UUID
	if id, err := uuid.Parse(r.CategoryID); err == nil {
		categoryID = &id
	}
	return catalog.ProductListQuery{
		CategoryID:  categoryID,
		Search:      r.Search,
		IsAvailable: r.IsAvailable,
		Page:        r.Page,
		PageSize:    r.PageSize,
	}
}

// ProductSearchRequest is a full-text product search
type ProductSearchRequest struct {
	Query    string `form:"q" binding:"required,max=200"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ImageUploadRequest asks for a presigned upload URL
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// AttachImageRequest attaches an uploaded object to a product
type AttachImageRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=512"`
}

// CategoryRequest creates or updates a category. On update omitted fields
// keep their value.
type CategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,slug,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// CategoryResponse is the public view of a category
type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductResponse is the public view of a product
type ProductResponse struct {
	ID             uuid.UUID          `json:"id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Name           string             `json:"name"`
	Slug           string             `json:"slug"`
	Description    string             `json:"description"`
	PriceCents     int64              `json:"price_cents"`
	PriceDisplay   string             `json:"price_display"`
	Currency       string             `json:"currency"`
	ImageURLs      []string           `json:"image_urls"`
	StockAvailable *int64             `json:"stock_available"`
	IsAvailable    bool               `json:"is_available"`
	IsDigital      bool               `json:"is_digital"`
	Categories     []CategoryResponse `json:"categories"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ImageUploadResponse tells the client where to PUT the image
type ImageUploadResponse struct {
	UploadURL  string    `json:"upload_url"`
	Method     string    `json:"method"`
	StorageKey string    `json:"storage_key"`
	PublicURL  string    `json:"public_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toCategoryResponse(c catalog.CategoryResult) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCategoryResponses(categories []catalog.CategoryResult) []CategoryResponse {
	resp := make([]CategoryResponse, len(categories))
	for i := range categories {
		resp[i] = toCategoryResponse(categories[i])
	}
	return resp
}

func toProductResponse(p catalog.ProductResult) ProductResponse {
	images := p.ImageURLs
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		PriceDisplay:   p.PriceDisplay,
		Currency:       p.Currency,
		ImageURLs:      images,
		StockAvailable: p.StockAvailable,
		IsAvailable:    p.IsAvailable,
		IsDigital:      p.IsDigital,
		Categories:     toCategoryResponses(p.Categories),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toProductResponses(products []catalog.ProductResult) []ProductResponse {
	resp := make([]ProductResponse, len(products))
	for i := range products {
		resp[i] = toProductResponse(products[i])
	}
	return resp
}
