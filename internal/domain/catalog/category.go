package catalog

import (
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Category groups products of one organization for browsing and filtering
type Category struct {
	shared.TenantAggregateRoot
	Name        string `gorm:"type:varchar(100);not null"`
	Slug        string `gorm:"type:varchar(100);not null;index"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category. An empty slug is derived from the name.
func NewCategory(organizationID uuid.UUID, name, slug, description string) (*Category, error) {
	if slug == "" {
		slug = Slugify(name)
	}
	if err := validateCategory(name, slug); err != nil {
		return nil, err
	}

	category := &Category{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(organizationID),
		Name:                strings.TrimSpace(name),
		Slug:                slug,
		Description:         description,
	}
	category.AddDomainEvent(NewCategoryCreatedEvent(category))

	return category, nil
}

// Update applies a partial update; nil arguments are left untouched
func (c *Category) Update(name, slug, description *string) error {
	newName, newSlug := c.Name, c.Slug
	if name != nil {
		newName = *name
	}
	if slug != nil {
		newSlug = *slug
	}
	if err := validateCategory(newName, newSlug); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(newName)
	c.Slug = newSlug
	if description != nil {
		c.Description = *description
	}
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryUpdatedEvent(c))
	return nil
}

// Delete sets the category's tombstone
func (c *Category) Delete() {
	c.MarkDeleted(time.Now())
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryDeletedEvent(c))
}

func validateCategory(name, slug string) error {
	if err := validateName(name, 100); err != nil {
		return err
	}
	if len(slug) > 100 {
		return ErrInvalidSlug.WithMessage("Slug cannot exceed 100 characters")
	}
	return ValidateSlug(slug)
}
