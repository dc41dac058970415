package identity

import (
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Organization is a merchant account and the tenant boundary for catalog,
// order and chat data.
type Organization struct {
	shared.BaseAggregateRoot
	Name            string  `gorm:"type:varchar(100);not null"`
	Slug            string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	AvatarURL       string  `gorm:"type:varchar(500)"`
	Email           string  `gorm:"type:varchar(320)"`
	Website         string  `gorm:"type:varchar(500)"`
	Bio             string  `gorm:"type:text"`
	StripeAccountID *string `gorm:"type:varchar(255);uniqueIndex"`
	IsActive        bool    `gorm:"not null;default:true"`
	OnboardedAt     *time.Time
}

// TableName returns the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// UserOrganization links a user to an organization they can manage
type UserOrganization struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserOrganization) TableName() string {
	return "user_organizations"
}

// NewOrganization creates an active organization
func NewOrganization(name, slug string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidOrganization.WithMessage("Organization name must be 1-100 characters")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" || len(slug) > 100 {
		return nil, ErrInvalidOrganization.WithMessage("Organization slug must be 1-100 characters")
	}
	for _, r := range slug {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return nil, ErrInvalidOrganization.WithMessage("Organization slug can only contain lower-case letters, numbers, and hyphens")
		}
	}

	org := &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		IsActive:          true,
	}
	org.AddDomainEvent(NewOrganizationCreatedEvent(org))
	return org, nil
}

// UpdateProfile sets the public profile fields
func (o *Organization) UpdateProfile(email, website, bio, avatarURL string) {
	o.Email = strings.TrimSpace(email)
	o.Website = strings.TrimSpace(website)
	o.Bio = bio
	o.AvatarURL = strings.TrimSpace(avatarURL)
	o.Touch()
	o.IncrementVersion()
}

// NewMembership links a user to an organization
func NewMembership(userID, organizationID uuid.UUID) UserOrganization {
	return UserOrganization{
		UserID:         userID,
		OrganizationID: organizationID,
		CreatedAt:      time.Now().UTC(),
	}
}
