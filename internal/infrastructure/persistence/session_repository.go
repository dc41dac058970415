package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionRepository implements identity.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByTokenHash returns a live session with its user loaded.
// Expiry is checked by the caller.
func (r *GormSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*identity.UserSession, error) {
	var session identity.UserSession
	if err := conn(ctx, r.db).
		Preload("User").
		Where("token_hash = ?", tokenHash).
		First(&session).Error; err != nil {
		return nil, translate(err, identity.ErrSessionNotFound)
	}
	if session.User == nil {
		return nil, identity.ErrSessionNotFound
	}
	return &session, nil
}

// FindByID returns a live session with its user loaded
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.UserSession, error) {
	var session identity.UserSession
	if err := conn(ctx, r.db).Preload("User").First(&session, "id = ?", id).Error; err != nil {
		return nil, translate(err, identity.ErrSessionNotFound)
	}
	if session.User == nil {
		return nil, identity.ErrSessionNotFound
	}
	return &session, nil
}

// Save creates or updates a session
func (r *GormSessionRepository) Save(ctx context.Context, session *identity.UserSession) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(session).Error
}
