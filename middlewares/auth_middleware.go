package middlewares

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
)

const principalKey = "principal"

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

func principalFromToken(token string) (services.Principal, error) {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return services.Principal{}, err
	}
	return services.Principal{
		ActorID: strconv.FormatUint(uint64(claims.UserID), 10),
		Role:    claims.Role,
	}, nil
}

// AuthMiddleware rejects requests without a valid staff token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}

		p, err := principalFromToken(token)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Set("userID", p.ActorID)
		c.Set("role", p.Role)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and lets
// anonymous customers through as guests.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := services.Principal{Role: services.RoleGuest}
		if token := bearerToken(c); token != "" {
			if parsed, err := principalFromToken(token); err == nil {
				p = parsed
			}
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// CurrentPrincipal returns the actor attached by one of the auth middlewares,
// or an anonymous guest.
func CurrentPrincipal(c *gin.Context) services.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(services.Principal); ok {
			return p
		}
	}
	return services.Principal{Role: services.RoleGuest}
}
