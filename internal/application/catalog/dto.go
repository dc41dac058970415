package catalog

import (
	"time"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CreateProductInput holds the attributes of a new product
type CreateProductInput struct {
	Name           string
	Slug           string
	Description    string
	PriceCents     int64
	Currency       string
	ImageURLs      []string
	StockAvailable *int64
	IsAvailable    *bool
	IsDigital      bool
	CategoryIDs    []uuid.UUID
}

// UpdateProductInput is a partial update; nil fields are left untouched
type UpdateProductInput struct {
	Name           *string
	Slug           *string
	Description    *string
	PriceCents     *int64
	Currency       *string
	ImageURLs      []string
	StockAvailable *int64
	IsAvailable    *bool
	IsDigital      *bool
	CategoryIDs    *[]uuid.UUID
}

// ProductListQuery narrows a product listing
type ProductListQuery struct {
	CategoryID  *uuid.UUID
	Search      string
	IsAvailable *bool
	Page        int
	PageSize    int
}

func (q ProductListQuery) toFilter() catalog.ProductListFilter {
	page := shared.Filter{Page: q.Page, PageSize: q.PageSize}.Normalize()
	return catalog.ProductListFilter{
		CategoryID:  q.CategoryID,
		Search:      q.Search,
		IsAvailable: q.IsAvailable,
		Page:        page.Page,
		PageSize:    page.PageSize,
	}
}

// CategoryInput holds category attributes. On update nil fields are left untouched.
type CategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
}

// CategoryResult is the external view of a category
type CategoryResult struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Slug           string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToCategoryResult converts a category to its external view
func ToCategoryResult(c *catalog.Category) CategoryResult {
	return CategoryResult{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Slug:           c.Slug,
		Description:    c.Description,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToCategoryResults converts a slice of categories
func ToCategoryResults(categories []catalog.Category) []CategoryResult {
	results := make([]CategoryResult, len(categories))
	for i := range categories {
		results[i] = ToCategoryResult(&categories[i])
	}
	return results
}

// ProductResult is the external view of a product
type ProductResult struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Slug           string
	Description    string
	PriceCents     int64
	PriceDisplay   string
	Currency       string
	ImageURLs      []string
	StockAvailable *int64
	IsAvailable    bool
	IsDigital      bool
	Categories     []CategoryResult
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToProductResult converts a product to its external view
func ToProductResult(p *catalog.Product) ProductResult {
	images := make([]string, len(p.ImageURLs))
	copy(images, p.ImageURLs)
	return ProductResult{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		PriceDisplay:   p.PriceDisplay(),
		Currency:       p.Currency,
		ImageURLs:      images,
		StockAvailable: p.StockAvailable,
		IsAvailable:    p.IsAvailable,
		IsDigital:      p.IsDigital,
		Categories:     ToCategoryResults(p.Categories),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProductResults converts a slice of products
func ToProductResults(products []catalog.Product) []ProductResult {
	results := make([]ProductResult, len(products))
	for i := range products {
		results[i] = ToProductResult(&products[i])
	}
	return results
}

// ImageUploadInput asks for a presigned image upload
type ImageUploadInput struct {
	ContentType string
}

// PresignedUpload is a short-lived URL the client uploads an object to
type PresignedUpload struct {
	UploadURL  string
	Method     string
	StorageKey string
	PublicURL  string
	ExpiresAt  time.Time
}
