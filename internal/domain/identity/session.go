package identity

import (
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserSession is a signed-in browser session. Only a hash of the cookie
// token is stored.
type UserSession struct {
	shared.BaseEntity
	TokenHash string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserID"`
}

// TableName returns the table name for GORM
func (UserSession) TableName() string {
	return "user_sessions"
}

// NewUserSession creates a session valid for ttl
func NewUserSession(userID uuid.UUID, tokenHash string, ttl time.Duration) *UserSession {
	base := shared.NewBaseEntity()
	return &UserSession{
		BaseEntity: base,
		TokenHash:  tokenHash,
		ExpiresAt:  base.CreatedAt.Add(ttl),
		UserID:     userID,
	}
}

// IsExpired reports whether the session has expired at now
func (s *UserSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsValid reports whether the session is live and unexpired
func (s *UserSession) IsValid(now time.Time) bool {
	return !s.IsDeleted() && !s.IsExpired(now)
}

// Revoke sets the session's tombstone
func (s *UserSession) Revoke() {
	s.MarkDeleted(time.Now())
}
