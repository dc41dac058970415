package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository implements identity.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	var org identity.Organization
	if err := conn(ctx, r.db).First(&org, "id = ?", id).Error; err != nil {
		return nil, translate(err, identity.ErrOrganizationNotFound)
	}
	return &org, nil
}

// FindBySlug finds an active organization by slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	var org identity.Organization
	if err := conn(ctx, r.db).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&org).Error; err != nil {
		return nil, translate(err, identity.ErrOrganizationNotFound)
	}
	return &org, nil
}

// ExistsBySlug checks if any organization uses the slug
func (r *GormOrganizationRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	// Slugs stay reserved after an organization is tombstoned.
	err := conn(ctx, r.db).Unscoped().Model(&identity.Organization{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// FindByMember returns the organizations a user belongs to, oldest membership first
func (r *GormOrganizationRepository) FindByMember(ctx context.Context, userID uuid.UUID) ([]identity.Organization, error) {
	var orgs []identity.Organization
	err := conn(ctx, r.db).
		Joins("JOIN user_organizations uo ON uo.organization_id = organizations.id").
		Where("uo.user_id = ?", userID).
		Order("uo.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}

// IsMember reports whether the user belongs to the live organization
func (r *GormOrganizationRepository) IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&identity.Organization{}).
		Joins("JOIN user_organizations uo ON uo.organization_id = organizations.id").
		Where("uo.user_id = ? AND organizations.id = ?", userID, organizationID).
		Count(&count).Error
	return count > 0, err
}

// AddMember links a user to an organization; an existing link is kept
func (r *GormOrganizationRepository) AddMember(ctx context.Context, membership identity.UserOrganization) error {
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	err := conn(ctx, r.db).Omit(clause.Associations).Save(org).Error
	if isDuplicateKey(err) {
		return identity.ErrOrganizationSlug
	}
	return err
}
