package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-app/config"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/router"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
	utils.SetLogLevel("error")
	utils.SetJWTSecret("controllers-test-secret")
	os.Exit(m.Run())
}

type testServer struct {
	db         *gorm.DB
	r          *gin.Engine
	hub        *realtime.Hub
	uploadDir  string
	adminToken string
	staffToken string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := setupTestDB(t)

	cfg := config.Default()
	cfg.Server.OrderRatePerMinute = 0
	cfg.Server.PublicBaseURL = "https://cafe.example"
	cfg.Server.UploadDir = t.TempDir()
	cfg.Auth.TokenTTL = time.Hour

	hub := realtime.NewHub(64, nil)
	inventory := services.NewInventoryService(db)
	orders := services.NewOrderService(services.OrderServiceDeps{
		Repo:        services.NewOrderRepository(db),
		Ledger:      inventory,
		Broadcaster: hub,
		Metrics:     services.NewOrderMetrics(nil),
		Notifier:    services.NewNotificationRecorder(db),
		QR:          services.TrackingLinker{BaseURL: cfg.Server.PublicBaseURL},
	}, services.DefaultOrderOptions())

	ts := &testServer{
		db:        db,
		hub:       hub,
		uploadDir: cfg.Server.UploadDir,
		r: router.SetupRouter(router.Deps{
			DB:        db,
			Config:    cfg,
			Orders:    orders,
			Inventory: inventory,
			Hub:       hub,
		}),
	}
	admin := ts.seedUser(t, "admin@cafe.test", "admin-pass-123", services.RoleAdmin)
	staff := ts.seedUser(t, "staff@cafe.test", "staff-pass-123", services.RoleStaff)
	ts.adminToken = tokenFor(t, admin)
	ts.staffToken = tokenFor(t, staff)
	return ts
}

func (ts *testServer) seedUser(t *testing.T, email, password, role string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{Name: role + " user", Email: email, Password: string(hashed), Role: role}
	require.NoError(t, ts.db.Create(&u).Error)
	return u
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Role, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func orderPayload(method string) map[string]interface{} {
	return map[string]interface{}{
		"customer_info": map[string]string{"name": "Maria Santos", "phone": "09171234567"},
		"items": []map[string]interface{}{
			{"name": "Spanish Latte", "quantity": 2, "unitPrice": "145.00"},
		},
		"total_amount":   "290.00",
		"payment_method": method,
		"orderType":      "takeout",
	}
}

// placeOrder creates an order through the public endpoint and returns its
// JSON representation.
func (ts *testServer) placeOrder(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/orders", "", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["order"].(map[string]interface{})
}
