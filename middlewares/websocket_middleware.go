package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/services"
)

// WebSocketAuthMiddleware lets customers subscribe without a token. A token
// that is present but invalid is rejected rather than downgraded.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.Set(principalKey, services.Principal{Role: services.RoleGuest})
			c.Next()
			return
		}

		p, err := principalFromToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}
