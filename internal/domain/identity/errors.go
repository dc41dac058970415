package identity

import "github.com/freely/backend/internal/domain/shared"

// Identity errors
var (
	ErrUserNotFound         = shared.NewDomainError("USER_NOT_FOUND", "User not found")
	ErrEmailTaken           = shared.NewDomainError("ALREADY_EXISTS", "A user with this email already exists")
	ErrUsernameTaken        = shared.NewDomainError("ALREADY_EXISTS", "This username is already taken")
	ErrInvalidEmail         = shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	ErrInvalidUsername      = shared.NewDomainError("INVALID_USERNAME", "Invalid username")
	ErrInvalidPassword      = shared.NewDomainError("INVALID_PASSWORD", "Invalid password")
	ErrInvalidCredentials   = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrOrganizationNotFound = shared.NewDomainError("ORGANIZATION_NOT_FOUND", "Organization not found")
	ErrNoOrganization       = shared.NewDomainError("ORGANIZATION_NOT_FOUND", "User has no organization")
	ErrNotMember            = shared.NewDomainError("FORBIDDEN", "You are not a member of this organization")
	ErrOrganizationSlug     = shared.NewDomainError("ALREADY_EXISTS", "An organization with this slug already exists")
	ErrInvalidOrganization  = shared.NewDomainError("INVALID_ORGANIZATION", "Invalid organization")
	ErrSessionNotFound      = shared.NewDomainError("SESSION_NOT_FOUND", "Session not found or expired")
)
