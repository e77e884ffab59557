package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/utils"
)

func ReceiptLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{
			"receipt_id": c.Param("receipt_id"),
			"order_id":   c.Param("order_id"),
			"actor":      CurrentPrincipal(c).ActorID,
		}
		utils.InfoLogger.WithFields(fields).Infof("Receipt request %s %s", c.Request.Method, c.FullPath())

		c.Next()

		if c.Writer.Status() < 300 {
			utils.InfoLogger.WithFields(fields).Info("Receipt request handled")
		} else {
			utils.ErrorLogger.WithFields(fields).Errorf("Receipt request failed with status %d", c.Writer.Status())
		}
	}
}
