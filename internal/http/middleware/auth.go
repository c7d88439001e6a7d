// README: Auth middleware (header-based stub for MVP).
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// [TODO] Replace header auth with JWT verification once the identity
// service lands. For MVP the gateway injects X-User-ID and X-User-Role.

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-User-ID")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set("user_id", uid)
		c.Set("is_admin", c.GetHeader("X-User-Role") == "admin")
		c.Next()
	}
}
