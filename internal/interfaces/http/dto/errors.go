package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/freely/backend/internal/domain/shared"
)

// General error codes
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeInvalidJSON = "INVALID_JSON"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Commerce error codes
const (
	ErrCodeInvalidState          = "INVALID_STATE"
	ErrCodeInsufficientStock     = "INSUFFICIENT_STOCK"
	ErrCodeProductUnavailable    = "PRODUCT_UNAVAILABLE"
	ErrCodeCartEmpty             = "CART_EMPTY"
	ErrCodeCartIdentityRequired  = "CART_IDENTITY_REQUIRED"
	ErrCodeMixedCurrencies       = "MIXED_CURRENCIES"
	ErrCodePaymentIntentMismatch = "PAYMENT_INTENT_MISMATCH"
	ErrCodePaymentNotConfigured  = "PAYMENT_NOT_CONFIGURED"
	ErrCodePaymentGateway        = "PAYMENT_GATEWAY_ERROR"
	ErrCodeInvalidWebhook        = "INVALID_WEBHOOK"
	ErrCodeOrderNumber           = "ORDER_NUMBER_UNAVAILABLE"
	ErrCodeImageNotUploaded      = "IMAGE_NOT_UPLOADED"
)

// Chat error codes
const (
	ErrCodeAssistant            = "ASSISTANT_ERROR"
	ErrCodeAssistantUnavailable = "ASSISTANT_UNAVAILABLE"
)

// Transport error codes
const (
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "REQUEST_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeInvalidJSON:          http.StatusBadRequest,
	ErrCodeInsufficientStock:    http.StatusBadRequest,
	ErrCodeProductUnavailable:   http.StatusBadRequest,
	ErrCodeCartEmpty:            http.StatusBadRequest,
	ErrCodeCartIdentityRequired: http.StatusBadRequest,
	ErrCodeMixedCurrencies:      http.StatusBadRequest,
	ErrCodeInvalidWebhook:       http.StatusBadRequest,
	ErrCodeImageNotUploaded:     http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeSessionNotFound:    http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeAlreadyExists:         http.StatusConflict,
	ErrCodeConcurrencyConflict:   http.StatusConflict,
	ErrCodePaymentIntentMismatch: http.StatusConflict,
	ErrCodeInvalidState:          http.StatusConflict,

	// Upstream errors
	ErrCodePaymentGateway:       http.StatusBadGateway,
	ErrCodeAssistant:            http.StatusBadGateway,
	ErrCodePaymentNotConfigured: http.StatusServiceUnavailable,
	ErrCodeOrderNumber:          http.StatusServiceUnavailable,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes missing from the table are classified by their suffix or prefix;
// anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_UNAVAILABLE"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps alternate spellings used by lower layers to
// the codes the API reports
var LegacyErrorCodeMapping = map[string]string{
	"INVALID_INPUT":       ErrCodeValidation,
	"INVALID_REQUEST":     ErrCodeBadRequest,
	"ORDER_NUMBER_ERROR":  ErrCodeInternal,
	"PASSWORD_HASH_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts an alternate code to the API code.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// FromError maps err to a status code and error envelope. Domain errors keep
// their code and message. Anything else is a 500 whose text is only shown
// when exposeDetails is set.
func FromError(err error, requestID string, exposeDetails bool) (int, Response) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := NormalizeErrorCode(domainErr.Code)
		status := GetHTTPStatus(code)
		message := domainErr.Message
		if status >= http.StatusInternalServerError && exposeDetails {
			message = domainErr.Error()
		}
		return status, NewErrorResponseWithRequestID(code, message, requestID)
	}

	message := "Internal server error"
	if exposeDetails {
		message = err.Error()
	}
	return http.StatusInternalServerError, NewErrorResponseWithRequestID(ErrCodeInternal, message, requestID)
}
