package handler

import (
	"time"

	"github.com/freely/backend/internal/application/identity"
	"github.com/google/uuid"
)

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,min=8,max=128"`
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Username      *string   `json:"username,omitempty"`
	DisplayName   string    `json:"display_name"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoginResponse is returned after a successful login. Browser clients use
// the session cookie; the access token serves API clients.
type LoginResponse struct {
	User                 UserResponse `json:"user"`
	AccessToken          string       `json:"access_token,omitempty"`
	AccessTokenExpiresAt *time.Time   `json:"access_token_expires_at,omitempty"`
	TokenType            string       `json:"token_type,omitempty"`
	SessionExpiresAt     time.Time    `json:"session_expires_at"`
}

// OptionalUserResponse reports the caller, if signed in
type OptionalUserResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
}

func toUserResponse(u identity.UserInfo) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
	}
}

func toLoginResponse(r *identity.LoginResult) LoginResponse {
	resp := LoginResponse{
		User:             toUserResponse(r.User),
		SessionExpiresAt: r.SessionExpiresAt,
	}
	if r.AccessToken != "" {
		expiresAt := r.AccessTokenExpiresAt
		resp.AccessToken = r.AccessToken
		resp.AccessTokenExpiresAt = &expiresAt
		resp.TokenType = r.TokenType
	}
	return resp
}
