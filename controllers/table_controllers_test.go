package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-app/models"
)

func TestTables(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/admin/tables", ts.adminToken, map[string]string{"tableNumber": "T4"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	table := decodeBody(t, w)["data"].(map[string]interface{})
	code := table["code"].(string)
	assert.Len(t, code, 12)
	assert.Equal(t, "https://cafe.example/order?table="+code, table["orderUrl"])
	assert.Equal(t, models.TableAvailable, table["status"])

	w = ts.do(t, http.MethodGet, "/tables/"+code, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T4", decodeBody(t, w)["data"].(map[string]interface{})["tableNumber"])

	w = ts.do(t, http.MethodGet, "/tables/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// dine-in by scanned code occupies the table
	payload := orderPayload("cash")
	payload["orderType"] = "dine_in"
	payload["tableCode"] = code
	order := ts.placeOrder(t, payload)
	assert.Equal(t, "T4", order["tableNumber"])

	var stored models.Table
	require.NoError(t, ts.db.Where("code = ?", code).First(&stored).Error)
	assert.Equal(t, models.TableOccupied, stored.Status)

	payload["tableCode"] = "unknown-code"
	w = ts.do(t, http.MethodPost, "/orders", "", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tablePath := fmt.Sprintf("/admin/tables/%d", stored.ID)
	w = ts.do(t, http.MethodPatch, tablePath, ts.staffToken, map[string]string{"status": "broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPatch, tablePath, ts.staffToken, map[string]string{"status": models.TableDirty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/admin/tables?status=dirty", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodDelete, tablePath, ts.staffToken, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, tablePath, ts.adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, tablePath, ts.adminToken, nil).Code)
}

func TestReservations(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/reservations", "", map[string]interface{}{
		"contactName":  "Ana Reyes",
		"contactPhone": "09181112222",
		"eventType":    "birthday",
		"eventDate":    time.Now().Add(-time.Hour).Format(time.RFC3339),
		"partySize":    12,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/reservations", "", map[string]interface{}{
		"contactName":  "Ana Reyes",
		"contactPhone": "09181112222",
		"eventType":    "birthday",
		"eventDate":    time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"partySize":    12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservation := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "pending", reservation["status"])

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/admin/reservations", "", nil).Code)

	w = ts.do(t, http.MethodGet, "/admin/reservations?upcoming=true", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)

	path := fmt.Sprintf("/admin/reservations/%v", reservation["id"])
	w = ts.do(t, http.MethodPatch, path, ts.staffToken, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, path, ts.staffToken, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", updated["status"])
	assert.False(t, strings.TrimSpace(updated["handledBy"].(string)) == "")
}
