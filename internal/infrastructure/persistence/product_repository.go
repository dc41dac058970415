package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID in any organization
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).Preload("Categories").First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, catalog.ErrProductNotFound)
	}
	return &product, nil
}

// FindByIDForOrganization finds a product by ID within an organization
func (r *GormProductRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Preload("Categories").
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, translate(err, catalog.ErrProductNotFound)
	}
	return &product, nil
}

// FindBySlug finds a product by its slug within an organization
func (r *GormProductRepository) FindBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID)).
		Preload("Categories").
		Where("slug = ?", slug).
		First(&product).Error; err != nil {
		return nil, translate(err, catalog.ErrProductNotFound)
	}
	return &product, nil
}

// FindByIDs finds products by ID including tombstoned ones
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	err := conn(ctx, r.db).Unscoped().Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// List returns a page of an organization's products, newest first
func (r *GormProductRepository) List(ctx context.Context, organizationID uuid.UUID, filter catalog.ProductListFilter) (shared.Paginated[catalog.Product], error) {
	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()

	query := conn(ctx, r.db).Model(&catalog.Product{}).Scopes(tenant.Scope(organizationID))
	if filter.CategoryID != nil {
		query = query.Where(
			`EXISTS (SELECT 1 FROM product_categories pc
				JOIN categories c ON c.id = pc.category_id AND c.deleted_at IS NULL
				WHERE pc.product_id = products.id AND pc.category_id = ?)`,
			*filter.CategoryID,
		)
	}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where(
			`(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.description) LIKE ? ESCAPE '\')`,
			pattern, pattern,
		)
	}
	if filter.IsAvailable != nil {
		query = query.Where("products.is_available = ?", *filter.IsAvailable)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}

	var products []catalog.Product
	if err := query.
		Preload("Categories").
		Order("products.created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&products).Error; err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}
	return shared.NewPaginated(products, total, page.Page, page.PageSize), nil
}

// ExistsBySlug checks if a live product other than excludeID uses the slug
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Product{}).
		Scopes(tenant.Scope(organizationID)).
		Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Save creates or updates a product together with its category links
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			if isDuplicateKey(err) {
				return catalog.ErrSlugTaken
			}
			return err
		}
		links := tx.Model(product).Association("Categories")
		if len(product.Categories) == 0 {
			return links.Clear()
		}
		return links.Replace(product.Categories)
	})
}
