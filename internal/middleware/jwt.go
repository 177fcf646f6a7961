package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// RevocationChecker reports signed-out token ids.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWT returns a middleware that validates JWT and sets user claims in context.
// sessions may be nil, in which case any unexpired token is accepted.
func JWT(jwtService *auth.JWTService, sessions RevocationChecker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if sessions != nil {
			revoked, err := sessions.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("session check failed", zap.Error(err))
				response.Internal(c, "failed to verify session")
				c.Abort()
				return
			}
			if revoked {
				response.Unauthorized(c, "session signed out")
				c.Abort()
				return
			}
		}
		c.Set(auth.ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserRole returns the authenticated caller's role, or "" when unauthenticated.
func UserRole(c *gin.Context) string {
	return c.GetString(ContextUserRole)
}
