package identity

import (
	"time"

	"github.com/freely/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// RegisterInput contains the input for user registration
type RegisterInput struct {
	Email    string
	Password string
	Username *string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	// CartSessionToken is the anonymous cart cookie, merged into the user's cart on success
	CartSessionToken string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	User                 UserInfo
	SessionToken         string
	SessionExpiresAt     time.Time
	AccessToken          string
	AccessTokenExpiresAt time.Time
	TokenType            string
}

// UserInfo contains the public fields of a user
type UserInfo struct {
	ID            uuid.UUID
	Email         string
	Username      *string
	DisplayName   string
	EmailVerified bool
	IsAdmin       bool
	CreatedAt     time.Time
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		DisplayName:   u.DisplayName(),
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
	}
}

// Principal is the authenticated caller of a request
type Principal struct {
	User      *identity.User
	SessionID uuid.UUID
}

// UserID returns the caller's user ID
func (p *Principal) UserID() uuid.UUID {
	return p.User.ID
}

// CreateOrganizationInput contains the input for creating an organization
type CreateOrganizationInput struct {
	Name    string
	Slug    string
	Email   string
	Website string
	Bio     string
}

// OrganizationInfo contains the public fields of an organization
type OrganizationInfo struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Email       string
	Website     string
	Bio         string
	AvatarURL   string
	IsActive    bool
	OnboardedAt *time.Time
	CreatedAt   time.Time
}

// ToOrganizationInfo converts a domain organization
func ToOrganizationInfo(o *identity.Organization) OrganizationInfo {
	return OrganizationInfo{
		ID:          o.ID,
		Name:        o.Name,
		Slug:        o.Slug,
		Email:       o.Email,
		Website:     o.Website,
		Bio:         o.Bio,
		AvatarURL:   o.AvatarURL,
		IsActive:    o.IsActive,
		OnboardedAt: o.OnboardedAt,
		CreatedAt:   o.CreatedAt,
	}
}
