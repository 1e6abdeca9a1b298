package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
)

// Context keys set by the auth middleware.
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
)

// AuthMiddleware verifies the bearer token and stores the caller's
// identity in the request context.
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		userID, username, err := authService.VerifyToken(token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket upgrades cannot set headers from browsers; accept the
	// token as a query parameter there.
	return c.Query("token")
}

// CurrentUserID reads the authenticated user set by AuthMiddleware.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
