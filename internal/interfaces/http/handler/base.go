// Package handler contains the HTTP handlers of the Freely API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/auth"
	"github.com/freely/backend/internal/interfaces/http/dto"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// ExposeErrorDetails puts the cause of internal errors in responses.
	// Disabled in production.
	ExposeErrorDetails bool
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// BindJSON binds and validates the request body. On failure it writes the
// 400 response and returns false.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, middleware.GetRequestID(c)))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, middleware.GetRequestID(c)))
		return false
	}
	return true
}

// ParamUUID parses a UUID path parameter. On failure it writes a 400
// response and returns false.
func (h *BaseHandler) ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// HandleError converts an error to an HTTP response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, resp := dto.FromError(err, middleware.GetRequestID(c), h.ExposeErrorDetails)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}

// RequireUserID returns the signed-in user's ID or writes a 401
func (h *BaseHandler) RequireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID := middleware.GetUserID(c)
	if userID == nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return *userID, true
}

// ActiveOrganizationID returns the organization resolved for a merchant route
func (h *BaseHandler) ActiveOrganizationID(c *gin.Context) (uuid.UUID, bool) {
	org := middleware.GetOrganization(c)
	if org == nil {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Organization context required")
		return uuid.Nil, false
	}
	return org.ID, true
}

// pageParams reads page and page_size query parameters
func pageParams(c *gin.Context) shared.Filter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(shared.DefaultPageSize)))
	return shared.Filter{Page: page, PageSize: pageSize}.Normalize()
}

// CookieConfig holds the session and anonymous cart cookie settings
type CookieConfig struct {
	SessionName string
	CartName    string
	Domain      string
	Secure      bool
	SameSite    http.SameSite
	SessionTTL  time.Duration
	CartTTL     time.Duration
}

// DefaultCookieConfig returns the cookie settings used in development
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		SessionName: "freely_session",
		CartName:    "freely_cart_session",
		SameSite:    http.SameSiteLaxMode,
		SessionTTL:  30 * 24 * time.Hour,
		CartTTL:     30 * 24 * time.Hour,
	}
}

// ParseSameSite maps a config value to an http.SameSite mode
func ParseSameSite(value string) http.SameSite {
	switch value {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (cfg CookieConfig) set(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", cfg.Domain, cfg.Secure, true)
}

func (cfg CookieConfig) clear(c *gin.Context, name string) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(name, "", -1, "/", cfg.Domain, cfg.Secure, true)
}

// SetSession writes the session cookie
func (cfg CookieConfig) SetSession(c *gin.Context, token string) {
	cfg.set(c, cfg.SessionName, token, cfg.SessionTTL)
}

// ClearSession expires the session cookie
func (cfg CookieConfig) ClearSession(c *gin.Context) {
	cfg.clear(c, cfg.SessionName)
}

// CartToken returns the anonymous cart cookie, if any
func (cfg CookieConfig) CartToken(c *gin.Context) string {
	token, err := c.Cookie(cfg.CartName)
	if err != nil {
		return ""
	}
	return token
}

// ClearCart expires the anonymous cart cookie
func (cfg CookieConfig) ClearCart(c *gin.Context) {
	cfg.clear(c, cfg.CartName)
}

// CartIdentity picks whose cart a request acts on: the signed-in user, else
// the anonymous cart cookie. With create set, a missing cookie is issued.
// Without it, ok is false when there is no cart to act on.
func (cfg CookieConfig) CartIdentity(c *gin.Context, create bool) (identity cart.Identity, ok bool, err error) {
	if userID := middleware.GetUserID(c); userID != nil {
		return cart.ForUser(*userID), true, nil
	}
	if token := cfg.CartToken(c); token != "" {
		return cart.ForSession(token), true, nil
	}
	if !create {
		return cart.Identity{}, false, nil
	}
	token, err := auth.RandomToken()
	if err != nil {
		return cart.Identity{}, false, err
	}
	cfg.set(c, cfg.CartName, token, cfg.CartTTL)
	return cart.ForSession(token), true, nil
}
