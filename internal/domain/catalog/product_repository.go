package catalog

import (
	"context"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductListFilter narrows a product listing
type ProductListFilter struct {
	CategoryID  *uuid.UUID
	Search      string // case-insensitive substring over name and description
	IsAvailable *bool
	Page        int
	PageSize    int
}

// ProductRepository defines the interface for product persistence.
// Tombstoned products are never returned.
type ProductRepository interface {
	// FindByID finds a product by its ID in any organization
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForOrganization finds a product by ID within an organization
	FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*Product, error)

	// FindBySlug finds a product by its slug within an organization
	FindBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*Product, error)

	// FindByIDs finds multiple products by ID, including tombstoned ones.
	// Used for order snapshots of products that may since have been deleted.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// List returns a page of an organization's products, newest first
	List(ctx context.Context, organizationID uuid.UUID, filter ProductListFilter) (shared.Paginated[Product], error)

	// ExistsBySlug checks if a live product other than excludeID uses the slug
	ExistsBySlug(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)

	// Save creates or updates a product together with its category links
	Save(ctx context.Context, product *Product) error
}
