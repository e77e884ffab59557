package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

const maxReceiptSize = 5 << 20

var receiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

type ReceiptController struct {
	DB        *gorm.DB
	Orders    *services.OrderService
	UploadDir string
}

func NewReceiptController(db *gorm.DB, orders *services.OrderService, uploadDir string) *ReceiptController {
	return &ReceiptController{DB: db, Orders: orders, UploadDir: uploadDir}
}

// UploadReceipt stores a customer's proof of an e-wallet payment.
func (rc *ReceiptController) UploadReceipt(c *gin.Context) {
	orderID := c.Param("order_id")
	order, err := rc.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("receipt file is required"))
		return
	}
	if file.Size > maxReceiptSize {
		utils.RespondError(c, http.StatusBadRequest, errors.New("receipt file must be 5MB or smaller"))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !receiptExtensions[ext] {
		utils.RespondError(c, http.StatusBadRequest, errors.New("receipt must be an image or PDF"))
		return
	}

	amount := order.TotalAmount
	if raw := c.PostForm("amount"); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil || !amount.IsPositive() {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid amount"))
			return
		}
	}

	dir := filepath.Join(rc.UploadDir, "receipts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		utils.ErrorLogger.Errorf("creating receipt dir %s: %v", dir, err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("could not store receipt"))
		return
	}
	name := uuid.NewString() + ext
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		utils.ErrorLogger.Errorf("saving receipt %s: %v", path, err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("could not store receipt"))
		return
	}

	receipt := models.PaymentReceipt{
		OrderID:         order.OrderID,
		FilePath:        "/uploads/receipts/" + name,
		OriginalName:    file.Filename,
		ReferenceNumber: strings.TrimSpace(c.PostForm("referenceNumber")),
		Amount:          amount,
		Status:          models.ReceiptPending,
	}
	if err := rc.DB.WithContext(c.Request.Context()).Create(&receipt).Error; err != nil {
		os.Remove(path)
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Receipt %d uploaded for order %s", receipt.ID, order.OrderID)
	utils.RespondJSON(c, http.StatusCreated, "Receipt uploaded", receipt)
}

// GetReceipts -> admin list, optionally filtered by status or order
func (rc *ReceiptController) GetReceipts(c *gin.Context) {
	q := rc.DB.WithContext(c.Request.Context()).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if orderID := c.Query("orderId"); orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}

	var receipts []models.PaymentReceipt
	if err := q.Find(&receipts).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of receipts", receipts)
}

func (rc *ReceiptController) pendingReceipt(c *gin.Context) (*models.PaymentReceipt, bool) {
	id, err := strconv.ParseUint(c.Param("receipt_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid receipt id"))
		return nil, false
	}

	var receipt models.PaymentReceipt
	if err := rc.DB.WithContext(c.Request.Context()).First(&receipt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Receipt not found"))
			return nil, false
		}
		respondServiceError(c, err)
		return nil, false
	}
	if receipt.Status != models.ReceiptPending {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("receipt is already %s", receipt.Status))
		return nil, false
	}
	return &receipt, true
}

func (rc *ReceiptController) review(c *gin.Context, receipt *models.PaymentReceipt, status, notes string) error {
	actor := middlewares.CurrentPrincipal(c).ActorID
	now := time.Now()
	res := rc.DB.WithContext(c.Request.Context()).Model(&models.PaymentReceipt{}).
		Where("id = ? AND status = ?", receipt.ID, models.ReceiptPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": actor,
			"reviewed_at": now,
			"notes":       notes,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrReceiptReviewed
	}
	receipt.Status = status
	receipt.ReviewedBy = &actor
	receipt.ReviewedAt = &now
	receipt.Notes = notes
	receipt.UpdatedAt = now
	return nil
}

// VerifyReceipt accepts the receipt and settles the order through the same
// path as a POS verification. The receipt flips to verified in that
// transaction.
func (rc *ReceiptController) VerifyReceipt(c *gin.Context) {
	receipt, ok := rc.pendingReceipt(c)
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&body)

	order, err := rc.Orders.VerifyPayment(c.Request.Context(), middlewares.CurrentPrincipal(c), receipt.OrderID, services.VerifyPaymentInput{
		Reference: receipt.ReferenceNumber,
		Notes:     body.Notes,
		ReceiptID: &receipt.ID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := rc.DB.WithContext(c.Request.Context()).First(receipt, receipt.ID).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondFields(c, http.StatusOK, gin.H{
		"message": "Receipt verified",
		"receipt": receipt,
		"order":   order,
	})
}

func (rc *ReceiptController) RejectReceipt(c *gin.Context) {
	receipt, ok := rc.pendingReceipt(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := rc.review(c, receipt, models.ReceiptRejected, body.Reason); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Receipt %d for order %s rejected", receipt.ID, receipt.OrderID)
	utils.RespondJSON(c, http.StatusOK, "Receipt rejected", receipt)
}
