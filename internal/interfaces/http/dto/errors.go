package dto

import (
	"net/http"
	"strings"
)

// Generic error codes
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidState    = "ERR_INVALID_STATE"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists   = "ERR_ALREADY_EXISTS"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Checkout and gateway error codes
const (
	ErrCodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	ErrCodeCheckoutNotFound   = "CHECKOUT_NOT_FOUND"
	ErrCodeWidgetUnavailable  = "WIDGET_UNAVAILABLE"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeGatewayFailed      = "GATEWAY_REQUEST_FAILED"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodePaymentMismatch    = "PAYMENT_MISMATCH"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenRevoked       = "TOKEN_REVOKED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Sessions
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"SESSION_NOT_FOUND":   http.StatusUnauthorized,
	ErrCodeInvalidToken:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"ADMIN_REQUIRED":      http.StatusForbidden,
	"USE_ADMIN_LOGIN":     http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,

	// Catalog and purchases
	"EMAIL_ALREADY_REGISTERED": http.StatusConflict,
	"ALREADY_OWNED":            http.StatusConflict,
	"PRODUCT_UNAVAILABLE":      http.StatusUnprocessableEntity,
	"SELF_DEACTIVATION":        http.StatusUnprocessableEntity,
	"ENTITLEMENT_PENDING":      http.StatusAccepted,
	"PAYMENT_ALREADY_RECORDED": http.StatusConflict,
	"UPLOAD_FAILED":            http.StatusBadGateway,
	"RECONCILE_UNAVAILABLE":    http.StatusServiceUnavailable,

	// Checkout
	ErrCodeCheckoutInProgress: http.StatusConflict,
	ErrCodeCheckoutNotFound:   http.StatusNotFound,
	ErrCodeWidgetUnavailable:  http.StatusServiceUnavailable,
	ErrCodeGatewayUnavailable: http.StatusBadGateway,
	ErrCodeGatewayFailed:      http.StatusBadGateway,
	ErrCodeInvalidSignature:   http.StatusBadRequest,
	ErrCodePaymentMismatch:    http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for an error code. Unlisted
// INVALID_* and OTP_* codes are input errors; anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "OTP_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the generic domain codes to API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
	"UNAUTHORIZED":   ErrCodeUnauthorized,
	"FORBIDDEN":      ErrCodeForbidden,
	"INTERNAL_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a generic domain code to its API code.
// Storefront codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
