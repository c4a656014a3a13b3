// Package handler holds the gin handlers of the storefront API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/logger"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// sentinelCodes maps non-domain sentinel errors to API error codes
var sentinelCodes = []struct {
	err     error
	code    string
	message string
}{
	{payment.ErrCheckoutInProgress, dto.ErrCodeCheckoutInProgress, "A checkout for this module is already open"},
	{payment.ErrCheckoutNotFound, dto.ErrCodeCheckoutNotFound, "Checkout not found or already settled"},
	{payment.ErrWidgetUnavailable, dto.ErrCodeWidgetUnavailable, "The payment window could not be loaded. Please try again"},
	{payment.ErrInvalidSignature, dto.ErrCodeInvalidSignature, "Payment could not be verified"},
	{payment.ErrPaymentMismatch, dto.ErrCodePaymentMismatch, "Payment does not match this purchase"},
	{payment.ErrGatewayUnavailable, dto.ErrCodeGatewayUnavailable, "Payment gateway is unavailable. Please try again"},
	{payment.ErrGatewayRequestFailed, dto.ErrCodeGatewayFailed, "Payment gateway rejected the request"},
	{payment.ErrGatewayNotConfigured, dto.ErrCodeGatewayUnavailable, "Payment gateway is not configured"},
	{payment.ErrInvalidAmount, "INVALID_AMOUNT", "Invalid payment amount"},
	{auth.ErrTokenRevoked, dto.ErrCodeTokenRevoked, "Token has been revoked"},
	{auth.ErrExpiredToken, "TOKEN_EXPIRED", "Token has expired"},
	{auth.ErrInvalidToken, dto.ErrCodeInvalidToken, "Invalid token"},
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// List sends a collection with its size
func List[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, dto.NewListResponse(items))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindJSON binds the request body, writing a validation response on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts domain and sentinel errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	var failure payment.FailureDetail
	if errors.As(err, &failure) {
		h.Error(c, http.StatusPaymentRequired, "PAYMENT_FAILED", failure.Error())
		return
	}

	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			h.Error(c, dto.GetHTTPStatus(s.code), s.code, s.message)
			return
		}
	}

	logger.FromContext(c.Request.Context()).Error("Unhandled request error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	h.InternalError(c, "An unexpected error occurred")
}
