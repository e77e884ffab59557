package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/realtime"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingBroadcaster) Emit(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingBroadcaster) all() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

func (r *recordingBroadcaster) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	db      *gorm.DB
	svc     *OrderService
	ledger  *InventoryService
	events  *recordingBroadcaster
	metrics *OrderMetrics
	now     time.Time
}

func newFixture(t *testing.T, mutate ...func(*OrderOptions)) *fixture {
	t.Helper()
	db := setupTestDB(t)
	opts := DefaultOrderOptions()
	for _, m := range mutate {
		m(&opts)
	}
	f := &fixture{
		db:      db,
		ledger:  NewInventoryService(db),
		events:  &recordingBroadcaster{},
		metrics: NewOrderMetrics(nil),
		now:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local),
	}
	f.svc = NewOrderService(OrderServiceDeps{
		Repo:        NewOrderRepository(db),
		Ledger:      f.ledger,
		Broadcaster: f.events,
		Metrics:     f.metrics,
		Notifier:    NewNotificationRecorder(db),
		QR:          TrackingLinker{BaseURL: "https://cafe.example"},
	}, opts).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) ingredient(t *testing.T, name string, stock float64) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, Unit: "g", Stock: stock}
	require.NoError(t, f.db.Create(&ing).Error)
	return ing
}

// menuLine creates a menu item whose recipe uses the given per-unit quantities
// and returns a line item ordering qty of it.
func (f *fixture) menuLine(t *testing.T, name string, price int64, qty int, recipe ...models.IngredientUse) models.LineItem {
	t.Helper()
	item := models.MenuItem{Name: name, Price: decimal.NewFromInt(price), Available: true}
	for _, r := range recipe {
		item.Ingredients = append(item.Ingredients, models.MenuIngredient{IngredientID: r.IngredientID, Quantity: r.Quantity})
	}
	require.NoError(t, f.db.Create(&item).Error)
	return models.LineItem{MenuItemID: &item.ID, Name: name, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func (f *fixture) stockOf(t *testing.T, id uint) models.Ingredient {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, f.db.First(&ing, id).Error)
	return ing
}

func cashTakeout(name string, items ...models.LineItem) CreateOrderInput {
	if len(items) == 0 {
		items = []models.LineItem{{Name: "Americano", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}}
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return CreateOrderInput{
		CustomerInfo:  CustomerInfo{Name: name},
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: "cash",
		OrderType:     "takeout",
	}
}

var staff = Principal{ActorID: "7", Role: RoleStaff}
