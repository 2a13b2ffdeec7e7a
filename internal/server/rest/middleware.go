package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/auth"
	"github.com/apetrenko/filevault/internal/server/models"
	"github.com/apetrenko/filevault/internal/server/services"
)

const ctxUserKey = "current_user"

// AuthMiddleware authenticates requests carrying a Bearer session token and
// loads the identity record for downstream handlers.
type AuthMiddleware struct {
	users  *services.UserService
	secret []byte
	logger logging.Logger
}

func NewAuthMiddleware(users *services.UserService, secret []byte, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{users: users, secret: secret, logger: logger.With("module", "auth_middleware")}
}

// RequireAuth verifies the Authorization header and puts the resolved user
// into the request context. All verification failures look the same to the
// client.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		subject, err := auth.GetSubjectFromToken(token, m.secret)
		if err != nil {
			m.logger.Debug(c.Request.Context(), "session token rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := m.users.GetByUsername(c.Request.Context(), subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// RequireRole rejects authenticated users whose role differs from role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(ctxUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
