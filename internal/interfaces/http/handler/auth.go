package handler

import (
	"context"

	"github.com/freely/backend/internal/application/identity"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthUseCases is the part of the auth service the handler calls
type AuthUseCases interface {
	Register(ctx context.Context, input identity.RegisterInput) (*identity.UserInfo, error)
	Login(ctx context.Context, input identity.LoginInput) (*identity.LoginResult, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*identity.UserInfo, error)
}

// AuthHandler handles sign-up, login and session endpoints
type AuthHandler struct {
	BaseHandler
	auth    AuthUseCases
	cookies CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(base BaseHandler, auth AuthUseCases, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{BaseHandler: base, auth: auth, cookies: cookies}
}

// Register creates an account. It does not sign the user in.
//
//	POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toUserResponse(*user))
}

// Login verifies credentials, sets the session cookie and merges the
// anonymous cart into the user's cart.
//
//	POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cartToken := h.cookies.CartToken(c)
	result, err := h.auth.Login(c.Request.Context(), identity.LoginInput{
		Email:            req.Email,
		Password:         req.Password,
		CartSessionToken: cartToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.cookies.SetSession(c, result.SessionToken)
	if cartToken != "" {
		h.cookies.ClearCart(c)
	}
	h.Success(c, toLoginResponse(result))
}

// Logout ends the current session and clears the cookie
//
//	POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), principal.SessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.cookies.ClearSession(c)
	h.Success(c, gin.H{"message": "Logged out"})
}

// Me returns the signed-in user
//
//	GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	user, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toUserResponse(*user))
}

// OptionalMe returns the user when signed in and a null user otherwise
//
//	GET /auth/me/optional
func (h *AuthHandler) OptionalMe(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		h.Success(c, OptionalUserResponse{})
		return
	}
	user := toUserResponse(identity.ToUserInfo(principal.User))
	h.Success(c, OptionalUserResponse{Authenticated: true, User: &user})
}
