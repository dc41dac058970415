package catalog

import "github.com/freely/backend/internal/domain/shared"

// Catalog errors
var (
	ErrProductNotFound    = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrCategoryNotFound   = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	ErrSlugTaken          = shared.NewDomainError("ALREADY_EXISTS", "Slug is already in use in this organization")
	ErrInvalidSlug        = shared.NewDomainError("INVALID_SLUG", "Invalid slug")
	ErrInvalidName        = shared.NewDomainError("INVALID_NAME", "Invalid name")
	ErrInvalidPrice       = shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	ErrInvalidCurrency    = shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO 4217 code")
	ErrInvalidStock       = shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	ErrInsufficientStock  = shared.ErrInsufficientStock
	ErrInvalidImageURL    = shared.NewDomainError("INVALID_IMAGE_URL", "Image URL cannot be empty")
	ErrUnknownCategoryID  = shared.NewDomainError("INVALID_CATEGORY", "One or more categories do not exist in this organization")
)
