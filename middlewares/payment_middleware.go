package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/utils"
)

// PaymentSecurityHeaders adds headers for payment endpoints
func PaymentSecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// LogPaymentRequest writes an audit line for every payment mutation.
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		p := CurrentPrincipal(c)
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id": c.Param("order_id"),
			"actor":    p.ActorID,
			"role":     p.Role,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Infof("Payment request %s %s", c.Request.Method, c.Request.URL.Path)
	}
}
