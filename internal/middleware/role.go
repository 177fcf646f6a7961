package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/response"
)

// RequireRole lets through only callers whose token role is one of roles.
// Mount after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	denied := "requires role: " + strings.Join(names, " or ")

	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserRole); !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role := models.Role(UserRole(c))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, denied)
		c.Abort()
	}
}
