package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByIDForOrganization finds a category by ID within an organization
func (r *GormCategoryRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*catalog.Category, error) {
	var category catalog.Category
	if err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Where("id = ?", id).
		First(&category).Error; err != nil {
		return nil, translate(err, catalog.ErrCategoryNotFound)
	}
	return &category, nil
}

// FindBySlug finds a category by slug within an organization
func (r *GormCategoryRepository) FindBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*catalog.Category, error) {
	var category catalog.Category
	if err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Where("slug = ?", slug).
		First(&category).Error; err != nil {
		return nil, translate(err, catalog.ErrCategoryNotFound)
	}
	return &category, nil
}

// FindByIDs finds the organization's categories among ids
func (r *GormCategoryRepository) FindByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) ([]catalog.Category, error) {
	if len(ids) == 0 {
		return []catalog.Category{}, nil
	}
	var categories []catalog.Category
	err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

// List returns all categories of an organization ordered by name
func (r *GormCategoryRepository) List(ctx context.Context, organizationID uuid.UUID) ([]catalog.Category, error) {
	var categories []catalog.Category
	err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

// ExistsBySlug checks if a live category other than excludeID uses the slug
func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Category{}).
		Scopes(tenant.Scope(organizationID)).
		Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	err := conn(ctx, r.db).Omit(clause.Associations).Save(category).Error
	if isDuplicateKey(err) {
		return catalog.ErrSlugTaken
	}
	return err
}
