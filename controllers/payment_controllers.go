package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
)

type PaymentController struct {
	DB *gorm.DB
}

func NewPaymentController(db *gorm.DB) *PaymentController {
	return &PaymentController{DB: db}
}

// GetAllPayments -> settled payment transactions, newest first
func (pc *PaymentController) GetAllPayments(c *gin.Context) {
	q := pc.DB.WithContext(c.Request.Context()).Order("created_at DESC, id DESC")
	if orderID := c.Query("orderId"); orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	if method := c.Query("paymentMethod"); method != "" {
		q = q.Where("method = ?", method)
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var payments []models.PaymentTransaction
	if err := q.Limit(limit).Find(&payments).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All payments", payments)
}
