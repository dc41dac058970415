package identity

import (
	"net/mail"
	"strings"

	"github.com/freely/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
const bcryptCost = 12

// User is an account that can sign in, shop, chat and manage organizations
type User struct {
	shared.BaseAggregateRoot
	Email         string  `gorm:"type:varchar(320);not null;uniqueIndex"`
	EmailVerified bool    `gorm:"not null;default:false"`
	Username      *string `gorm:"type:varchar(50);uniqueIndex"`
	AvatarURL     string  `gorm:"type:varchar(500)"`
	PasswordHash  *string `gorm:"type:varchar(255)"`
	IsAdmin       bool    `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a user with a password. Emails are stored lower-cased.
// Registration verifies the email immediately; there is no verification flow.
func NewUser(email, password string, username *string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if username != nil {
		name := strings.TrimSpace(*username)
		if name == "" {
			username = nil
		} else {
			if err := validateUsername(name); err != nil {
				return nil, err
			}
			username = &name
		}
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		EmailVerified:     true,
		Username:          username,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))
	return user, nil
}

// SetPassword validates and hashes a new password
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password").WithCause(err)
	}
	h := string(hash)
	u.PasswordHash = &h
	u.Touch()
	return nil
}

// VerifyPassword checks a password against the stored hash.
// Users without a password (external sign-in) never match.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) == nil
}

// DisplayName returns the username when set, otherwise the email
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Email
}

// NormalizeEmail trims, lower-cases and validates an email address
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail.WithMessage("Email cannot be empty")
	}
	if len(email) > 320 {
		return "", ErrInvalidEmail.WithMessage("Email cannot exceed 320 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return ErrInvalidUsername.WithMessage("Username must be at least 3 characters")
	}
	if len(username) > 50 {
		return ErrInvalidUsername.WithMessage("Username cannot exceed 50 characters")
	}
	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return ErrInvalidUsername.WithMessage("Username can only contain letters, numbers, dots, underscores, and hyphens")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrInvalidPassword.WithMessage("Password cannot be empty")
	}
	if len(password) < 8 {
		return ErrInvalidPassword.WithMessage("Password must be at least 8 characters")
	}
	// bcrypt ignores input past 72 bytes
	if len(password) > 72 {
		return ErrInvalidPassword.WithMessage("Password cannot exceed 72 bytes")
	}
	return nil
}
