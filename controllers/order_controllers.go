package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> customer places an order, no login needed
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid order payload"))
		return
	}

	order, err := oc.Orders.Create(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondFields(c, http.StatusCreated, gin.H{
		"message": "Order created",
		"order":   order,
	})
}

// GetAllOrders -> staff list with filters and pagination
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	f := services.OrderFilter{
		PaymentStatus: c.Query("paymentStatus"),
		OrderType:     c.Query("orderType"),
		Search:        c.Query("search"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, s)
			}
		}
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		f.Date = &day
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	f.Normalize()

	orders, total, err := oc.Orders.List(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondFields(c, http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   f.Page,
		"limit":  f.Limit,
	})
}

// GetOrderByID -> detail 1 order, used by the tracking page
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, err := oc.Orders.Get(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondFields(c, http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus -> PUT /orders/:order_id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var in services.UpdateStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid status payload"))
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), middlewares.CurrentPrincipal(c), c.Param("order_id"), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondFields(c, http.StatusOK, gin.H{
		"message": "Order updated",
		"order":   order,
	})
}

// VerifyPayment -> cashier confirms payment at the POS; the order moves to preparing
func (oc *OrderController) VerifyPayment(c *gin.Context) {
	var in services.VerifyPaymentInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid payment payload"))
			return
		}
	}

	order, err := oc.Orders.VerifyPayment(c.Request.Context(), middlewares.CurrentPrincipal(c), c.Param("order_id"), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondFields(c, http.StatusOK, gin.H{
		"message": "Payment verified",
		"order":   order,
	})
}

// CancelOrder -> POST /orders/:order_id/cancel {reason}
func (oc *OrderController) CancelOrder(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid cancel payload"))
			return
		}
	}

	order, err := oc.Orders.Cancel(c.Request.Context(), middlewares.CurrentPrincipal(c), c.Param("order_id"), body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondFields(c, http.StatusOK, gin.H{
		"message": "Order cancelled",
		"order":   order,
	})
}

// UpdatePaymentStatus -> PUT /orders/:order_id/payment-status {paymentStatus}
func (oc *OrderController) UpdatePaymentStatus(c *gin.Context) {
	var body struct {
		PaymentStatus string `json:"paymentStatus"`
		Legacy        string `json:"payment_status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid payment payload"))
		return
	}
	status := body.PaymentStatus
	if status == "" {
		status = body.Legacy
	}

	order, err := oc.Orders.SetPaymentStatus(c.Request.Context(), middlewares.CurrentPrincipal(c), c.Param("order_id"), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondFields(c, http.StatusOK, gin.H{
		"message": "Payment status updated",
		"order":   order,
	})
}
