package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"SESSION_NOT_FOUND", http.StatusUnauthorized},
		{"EMAIL_ALREADY_REGISTERED", http.StatusConflict},
		{"ALREADY_OWNED", http.StatusConflict},
		{"ADMIN_REQUIRED", http.StatusForbidden},
		{"USE_ADMIN_LOGIN", http.StatusForbidden},
		{"ACCOUNT_INACTIVE", http.StatusForbidden},
		{"PRODUCT_UNAVAILABLE", http.StatusUnprocessableEntity},
		{"UPLOAD_FAILED", http.StatusBadGateway},
		{ErrCodeCheckoutInProgress, http.StatusConflict},
		{ErrCodeWidgetUnavailable, http.StatusServiceUnavailable},
		{"INVALID_EMAIL", http.StatusBadRequest},
		{"INVALID_RATING", http.StatusBadRequest},
		{"OTP_EXPIRED", http.StatusBadRequest},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeForbidden, NormalizeErrorCode("FORBIDDEN"))
	assert.Equal(t, "ALREADY_OWNED", NormalizeErrorCode("ALREADY_OWNED"))
}

func TestErrorResponseJSON(t *testing.T) {
	t.Run("request id and details", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
			{Field: "email", Message: "Invalid email format"},
		})

		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"success": false,
			"error": {
				"code": "ERR_VALIDATION",
				"message": "Request validation failed",
				"details": [{"field": "email", "message": "Invalid email format"}],
				"request_id": "req-1"
			}
		}`, string(raw))
	})

	t.Run("no data on errors", func(t *testing.T) {
		raw, err := json.Marshal(NewErrorResponse("ALREADY_OWNED", "You already own this module"))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"data"`)
		assert.NotContains(t, string(raw), `"request_id"`)
	})
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse[string](nil)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{}, resp.Data)
	assert.Equal(t, 0, resp.Meta.Total)

	resp = NewListResponse([]int{1, 2, 3})
	assert.Equal(t, 3, resp.Meta.Total)
}
