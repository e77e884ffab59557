package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

// respondServiceError maps service and lifecycle errors to HTTP codes.
// Persistence details are logged, never returned.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err), errors.Is(err, lifecycle.ErrUnknownStatus):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, errors.New("Order not found"))
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrTerminalState),
		errors.Is(err, lifecycle.ErrPaymentRequired),
		errors.Is(err, services.ErrReceiptReviewed):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.ErrorLogger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New(utils.DBErrorMessage(err)))
	}
}
