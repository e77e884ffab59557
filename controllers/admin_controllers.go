package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db, now: time.Now}
}

type statusCount struct {
	Status string
	Total  int64
}

// GetDashboardStats -> today's order flow, revenue, tables and low stock
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	db := ac.DB.WithContext(c.Request.Context())
	now := ac.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	var stats struct {
		TodayOrders   int64            `json:"today_orders"`
		ActiveOrders  int64            `json:"active_orders"`
		OrdersByState map[string]int64 `json:"orders_by_status"`
		TodayRevenue  decimal.Decimal  `json:"today_revenue"`
		RevenueLabel  string           `json:"today_revenue_label"`
		TableStats    map[string]int64 `json:"table_stats"`
		LowStock      int64            `json:"low_stock_ingredients"`
		PendingProofs int64            `json:"pending_receipts"`
	}
	stats.OrdersByState = map[string]int64{}
	stats.TableStats = map[string]int64{}

	if err := db.Model(&models.Order{}).Where("order_time >= ? AND order_time < ?", start, end).Count(&stats.TodayOrders).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	var byStatus []statusCount
	err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Where("order_time >= ? AND order_time < ?", start, end).
		Group("status").Scan(&byStatus).Error
	if err != nil {
		respondServiceError(c, err)
		return
	}
	for _, s := range byStatus {
		stats.OrdersByState[s.Status] = s.Total
		if !lifecycle.Status(s.Status).Terminal() {
			stats.ActiveOrders += s.Total
		}
	}

	var revenue []models.PaymentTransaction
	err = db.Where("status = ? AND created_at >= ? AND created_at < ?", string(lifecycle.PaymentPaid), start, end).
		Find(&revenue).Error
	if err != nil {
		respondServiceError(c, err)
		return
	}
	stats.TodayRevenue = decimal.Zero
	for _, p := range revenue {
		stats.TodayRevenue = stats.TodayRevenue.Add(p.Amount)
	}
	stats.RevenueLabel = utils.FormatPeso(stats.TodayRevenue)

	var tables []statusCount
	if err := db.Model(&models.Table{}).Select("status, COUNT(*) AS total").Group("status").Scan(&tables).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	for _, t := range tables {
		stats.TableStats[t.Status] = t.Total
	}

	db.Model(&models.Ingredient{}).Where("stock - reserved <= min_threshold").Count(&stats.LowStock)
	db.Model(&models.PaymentReceipt{}).Where("status = ?", models.ReceiptPending).Count(&stats.PendingProofs)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}
