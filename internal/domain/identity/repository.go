package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByEmail looks a user up by normalized email
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, user *User) error
}

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	// FindByMember returns the organizations a user belongs to, oldest membership first
	FindByMember(ctx context.Context, userID uuid.UUID) ([]Organization, error)
	IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, membership UserOrganization) error
	Save(ctx context.Context, org *Organization) error
}

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	// FindByTokenHash returns a live session with its user loaded
	FindByTokenHash(ctx context.Context, tokenHash string) (*UserSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*UserSession, error)
	Save(ctx context.Context, session *UserSession) error
}
