package rbac

import (
	"net/http"

	"github.com/mehtameet005/utm-tracker/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireSite enforces the tenancy invariant: site_id must exist in context.
// This does not validate membership; that belongs to the authorization
// layer once persistence exists.
func RequireSite() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := auth.SiteID(c.Request.Context())
		if err != nil || sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "site_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// super_admin bypasses all checks.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		if IsSuperAdmin(role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
