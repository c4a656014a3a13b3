package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

// RequireRole allows only sessions whose role is one of roles. It must run
// after SessionAuth.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := identity.Role(c.GetString(RoleKey))
		if role == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				"You do not have access to this resource",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// RequireAdmin allows the admin and super_admin roles
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(identity.RoleAdmin, identity.RoleSuperAdmin)
}
