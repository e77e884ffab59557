package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/models"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OrderFilter struct {
	Statuses      []string
	PaymentStatus string
	OrderType     string
	Date          *time.Time
	Search        string
	Page          int
	Limit         int
}

// Normalize clamps page and limit to the values List applies.
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
}

// OrderRepository is the order store. Every status or payment write is a
// single UPDATE scoped by order_id.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}

func (r *OrderRepository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return r.conn(ctx, tx).Create(order).Error
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	f.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, string(lifecycle.NormalizeStatus(s)))
			}
		}
		if len(statuses) > 0 {
			q = q.Where("status IN ?", statuses)
		}
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", lifecycle.NormalizePaymentStatus(f.PaymentStatus))
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", lifecycle.NormalizeOrderType(f.OrderType))
	}
	if f.Date != nil {
		start := startOfDay(*f.Date)
		q = q.Where("order_time >= ? AND order_time < ?", start, start.AddDate(0, 0, 1))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(customer_name LIKE ? OR order_id LIKE ? OR order_number LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := q.
		Order("CASE WHEN status IN ('completed', 'cancelled') THEN 1 ELSE 0 END").
		Order("created_at DESC").
		Order("id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) UpdateFields(ctx context.Context, tx *gorm.DB, orderID string, fields map[string]interface{}) error {
	res := r.conn(ctx, tx).Model(&models.Order{}).Where("order_id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// NextQueuePosition returns the day's highest position among orders that are
// not cancelled, plus one. Existing positions are never recomputed.
func (r *OrderRepository) NextQueuePosition(ctx context.Context, tx *gorm.DB, day time.Time) (int, error) {
	start := startOfDay(day)
	var max struct{ Pos int }
	err := r.conn(ctx, tx).Model(&models.Order{}).
		Select("COALESCE(MAX(queue_position), 0) AS pos").
		Where("order_time >= ? AND order_time < ?", start, start.AddDate(0, 0, 1)).
		Where("status <> ?", lifecycle.StatusCancelled).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max.Pos + 1, nil
}

// OrderNumberInUse reports whether a short code belongs to an order that is
// still open or was placed today.
func (r *OrderRepository) OrderNumberInUse(ctx context.Context, tx *gorm.DB, code string, now time.Time) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&models.Order{}).
		Where("order_number = ?", code).
		Where("(status NOT IN ? OR order_time >= ?)",
			[]string{string(lifecycle.StatusCompleted), string(lifecycle.StatusCancelled)},
			startOfDay(now)).
		Count(&n).Error
	return n > 0, err
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
