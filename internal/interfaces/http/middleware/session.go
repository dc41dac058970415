package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/freely/backend/internal/application/identity"
	"github.com/freely/backend/internal/infrastructure/logger"
	"github.com/freely/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auth context keys
const (
	PrincipalKey  = "auth_principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Authenticator resolves the caller behind a session cookie or bearer token
type Authenticator interface {
	ResolveSession(ctx context.Context, token string) (*identity.Principal, error)
	AuthenticateBearer(ctx context.Context, accessToken string) (*identity.Principal, error)
}

// SessionAuthConfig holds configuration for the session middleware
type SessionAuthConfig struct {
	Authenticator Authenticator
	// CookieName is the session cookie read when no bearer token is sent
	CookieName string
	Logger     *zap.Logger
}

// RequireAuth rejects requests without a live session with 401
func RequireAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	return sessionAuth(cfg, true)
}

// OptionalAuth attaches the caller when a live session is presented and
// lets anonymous requests through. Stale credentials are ignored.
func OptionalAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	return sessionAuth(cfg, false)
}

func sessionAuth(cfg SessionAuthConfig, required bool) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			principal *identity.Principal
			err       error
			presented bool
		)
		if token, ok := bearerToken(c); ok {
			presented = true
			principal, err = cfg.Authenticator.AuthenticateBearer(ctx, token)
		} else if cookie, cerr := c.Cookie(cfg.CookieName); cerr == nil && cookie != "" {
			presented = true
			principal, err = cfg.Authenticator.ResolveSession(ctx, cookie)
		}

		if principal == nil {
			if !required {
				c.Next()
				return
			}
			message := "Authentication required"
			if presented {
				message = "Session is invalid or has expired"
				log.Debug("Session authentication failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, message, GetRequestID(c)))
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(logger.WithUserID(ctx, principal.UserID().String()))
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// GetPrincipal returns the authenticated caller, or nil for anonymous requests
func GetPrincipal(c *gin.Context) *identity.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID, or nil for anonymous requests
func GetUserID(c *gin.Context) *uuid.UUID {
	p := GetPrincipal(c)
	if p == nil {
		return nil
	}
	id := p.UserID()
	return &id
}
