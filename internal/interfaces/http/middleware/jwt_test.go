package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

type stubValidator map[string]error

func (s stubValidator) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if err, ok := s[token]; ok {
		return nil, err
	}
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-" + token},
		UserID:           "u1",
		Email:            "user@tallypro.in",
		Role:             "customer",
		SessionID:        "sess-" + token,
	}, nil
}

func sessionRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), mw)
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    GetUserID(c),
			"session_id": GetSessionID(c),
			"token":      GetToken(c),
			"claims":     GetClaims(c) != nil,
		})
	})
	return router
}

func TestSessionAuth(t *testing.T) {
	validator := stubValidator{
		"expired": auth.ErrExpiredToken,
		"revoked": auth.ErrTokenRevoked,
		"garbage": auth.ErrInvalidToken,
	}
	router := sessionRouter(SessionAuth(validator, nil))

	t.Run("valid token binds session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer good")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"u1","session_id":"sess-good","token":"good","claims":true}`, w.Body.String())
	})

	t.Run("stream token from query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?access_token=good", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", "UNAUTHORIZED"},
		{"expired", "Bearer expired", "TOKEN_EXPIRED"},
		{"revoked", "Bearer revoked", "TOKEN_REVOKED"},
		{"invalid", "Bearer garbage", "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestOptionalSessionAuth(t *testing.T) {
	router := sessionRouter(OptionalSessionAuth(stubValidator{"revoked": auth.ErrTokenRevoked}))

	t.Run("anonymous passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"","session_id":"","token":"","claims":false}`, w.Body.String())
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer revoked")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":""`)
	})

	t.Run("valid token binds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer good")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
	})
}
