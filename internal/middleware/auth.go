package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"sitesense-backend/internal/session"
)

const (
	UserIDKey  = "user_id"
	SessionKey = "session"
)

// AuthMiddleware rejects any request without a live session before the
// handler (and therefore storage) is touched.
func AuthMiddleware(provider session.Provider, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		s, err := provider.Current(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(SessionKey, s)
		c.Set(UserIDKey, s.UserID)
		c.Next()
	}
}

// SessionToken reads the session cookie, falling back to a bearer token for
// non-browser callers.
func SessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
