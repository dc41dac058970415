package catalog

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence.
// Tombstoned categories are never returned.
type CategoryRepository interface {
	// FindByIDForOrganization finds a category by ID within an organization
	FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*Category, error)

	// FindBySlug finds a category by slug within an organization
	FindBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*Category, error)

	// FindByIDs finds the organization's categories among ids
	FindByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) ([]Category, error)

	// List returns all categories of an organization ordered by name
	List(ctx context.Context, organizationID uuid.UUID) ([]Category, error)

	// ExistsBySlug checks if a live category other than excludeID uses the slug
	ExistsBySlug(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error
}
