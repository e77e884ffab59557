package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-app/models"
)

func TestCreateOrder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/orders", "", orderPayload("cash"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	order := body["order"].(map[string]interface{})
	assert.NotEmpty(t, order["orderId"])
	assert.NotEmpty(t, order["shortOrderCode"])
	assert.Equal(t, "pending_verification", order["status"])
	assert.Equal(t, "pending", order["paymentStatus"])
	assert.Equal(t, "takeout", order["orderType"])
	assert.EqualValues(t, 1, order["queuePosition"])
	assert.Contains(t, order["qrCode"], "https://cafe.example")
}

func TestCreateOrder_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		message string
	}{
		{
			name:    "missing customer name",
			mutate:  func(p map[string]interface{}) { p["customer_info"] = map[string]string{} },
			message: "Customer name is required",
		},
		{
			name:    "no items",
			mutate:  func(p map[string]interface{}) { p["items"] = []interface{}{} },
			message: "Order must contain at least one item",
		},
		{
			name:    "zero total",
			mutate:  func(p map[string]interface{}) { p["total_amount"] = "0" },
			message: "Invalid total amount",
		},
		{
			name:    "unknown payment method",
			mutate:  func(p map[string]interface{}) { p["payment_method"] = "bitcoin" },
			message: "Invalid payment method",
		},
		{
			name:    "dine in without table",
			mutate:  func(p map[string]interface{}) { p["orderType"] = "dine_in" },
			message: "Table number is required for dine-in orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := orderPayload("cash")
			tt.mutate(payload)
			w := ts.do(t, http.MethodPost, "/orders", "", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
		})
	}

	var count int64
	ts.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestGetOrderByID(t *testing.T) {
	ts := newTestServer(t)
	order := ts.placeOrder(t, orderPayload("gcash"))

	w := ts.do(t, http.MethodGet, "/orders/"+order["orderId"].(string), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)["order"].(map[string]interface{})
	assert.Equal(t, order["orderId"], got["orderId"])

	w = ts.do(t, http.MethodGet, "/orders/ORD-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decodeBody(t, w)["error"])
}

func TestStaffOrderRoutes_RequireAuth(t *testing.T) {
	ts := newTestServer(t)
	order := ts.placeOrder(t, orderPayload("cash"))
	id := order["orderId"].(string)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/orders", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		ts.do(t, http.MethodPut, "/orders/"+id+"/status", "", map[string]string{"status": "preparing"}).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/orders/"+id+"/verify-payment", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/orders/"+id+"/cancel", "", nil).Code)
}

func TestGetAllOrders_Filters(t *testing.T) {
	ts := newTestServer(t)
	first := ts.placeOrder(t, orderPayload("cash"))
	ts.placeOrder(t, orderPayload("gcash"))
	ts.placeOrder(t, orderPayload("paymaya"))

	w := ts.do(t, http.MethodPost, "/orders/"+first["orderId"].(string)+"/verify-payment", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/orders", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 20, body["limit"])
	assert.Len(t, body["orders"], 3)

	w = ts.do(t, http.MethodGet, "/orders?status=preparing", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.EqualValues(t, 1, body["total"])
	orders := body["orders"].([]interface{})
	assert.Equal(t, first["orderId"], orders[0].(map[string]interface{})["orderId"])

	w = ts.do(t, http.MethodGet, "/orders?paymentStatus=pending&limit=1", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["orders"], 1)

	w = ts.do(t, http.MethodGet, "/orders?date=14-03-2026", ts.staffToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment(t *testing.T) {
	ts := newTestServer(t)
	order := ts.placeOrder(t, orderPayload("gcash"))
	id := order["orderId"].(string)

	w := ts.do(t, http.MethodPost, "/orders/"+id+"/verify-payment", ts.staffToken, map[string]string{
		"reference": "GC-0001",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	got := decodeBody(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "preparing", got["status"])
	assert.Equal(t, "paid", got["paymentStatus"])

	var payments []models.PaymentTransaction
	require.NoError(t, ts.db.Where("order_id = ?", id).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "GC-0001", payments[0].Reference)
	assert.Equal(t, "gcash", payments[0].Method)

	// A second verification does not record another payment.
	w = ts.do(t, http.MethodPost, "/orders/"+id+"/verify-payment", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	ts.db.Model(&models.PaymentTransaction{}).Where("order_id = ?", id).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestUpdateOrderStatus(t *testing.T) {
	ts := newTestServer(t)

	t.Run("unpaid e-wallet order cannot be marked ready", func(t *testing.T) {
		order := ts.placeOrder(t, orderPayload("gcash"))
		w := ts.do(t, http.MethodPut, "/orders/"+order["orderId"].(string)+"/status", ts.staffToken,
			map[string]string{"status": "ready"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		order := ts.placeOrder(t, orderPayload("cash"))
		w := ts.do(t, http.MethodPut, "/orders/"+order["orderId"].(string)+"/status", ts.staffToken,
			map[string]string{"status": "baking"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing order", func(t *testing.T) {
		w := ts.do(t, http.MethodPut, "/orders/ORD-missing/status", ts.staffToken,
			map[string]string{"status": "ready"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("cash order through to completion", func(t *testing.T) {
		order := ts.placeOrder(t, orderPayload("cash"))
		id := order["orderId"].(string)

		for _, status := range []string{"preparing", "ready", "completed"} {
			w := ts.do(t, http.MethodPut, "/orders/"+id+"/status", ts.staffToken, map[string]string{"status": status})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			got := decodeBody(t, w)["order"].(map[string]interface{})
			assert.Equal(t, status, got["status"])
		}

		var stored models.Order
		require.NoError(t, ts.db.Where("order_id = ?", id).First(&stored).Error)
		assert.Equal(t, "paid", stored.PaymentStatus)
		assert.NotNil(t, stored.CompletedTime)

		w := ts.do(t, http.MethodPut, "/orders/"+id+"/status", ts.staffToken, map[string]string{"status": "preparing"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCancelOrder(t *testing.T) {
	ts := newTestServer(t)
	order := ts.placeOrder(t, orderPayload("cash"))
	id := order["orderId"].(string)

	w := ts.do(t, http.MethodPost, "/orders/"+id+"/cancel", ts.staffToken, map[string]string{"reason": "customer left"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "cancelled", got["status"])
	assert.Equal(t, "customer left", got["cancellationReason"])
	assert.NotEmpty(t, got["cancelledBy"])

	w = ts.do(t, http.MethodPost, "/orders/"+id+"/cancel", ts.staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdatePaymentStatus(t *testing.T) {
	ts := newTestServer(t)
	order := ts.placeOrder(t, orderPayload("paymaya"))
	id := order["orderId"].(string)

	w := ts.do(t, http.MethodPut, "/orders/"+id+"/payment-status", ts.staffToken, map[string]string{"paymentStatus": "refunded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/orders/"+id+"/payment-status", ts.staffToken, map[string]string{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "paid", got["paymentStatus"])
	assert.Equal(t, "payment_confirmed", got["status"])
}
