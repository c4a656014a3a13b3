package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequireAdmin(t *testing.T) {
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(RoleKey, role)
			}
			c.Next()
		}
	}

	tests := []struct {
		role   string
		status int
	}{
		{"super_admin", http.StatusOK},
		{"admin", http.StatusOK},
		{"support_admin", http.StatusForbidden},
		{"customer", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			router := gin.New()
			router.Use(withRole(tt.role), RequireAdmin())
			router.GET("/admin/users", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
