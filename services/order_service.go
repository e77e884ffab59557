package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CreateOrderInput struct {
	CustomerInfo  CustomerInfo      `json:"customer_info"`
	Items         []models.LineItem `json:"items"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes"`
	OrderType     string            `json:"orderType"`
	TableNumber   string            `json:"tableNumber"`
	TableCode     string            `json:"tableCode"`
}

type UpdateStatusInput struct {
	Status             string `json:"status"`
	PaymentStatus      string `json:"paymentStatus"`
	CancellationReason string `json:"cancellationReason"`
	CancelledBy        string `json:"cancelledBy"`
}

type VerifyPaymentInput struct {
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	ReceiptID *uint  `json:"receiptId"`
}

type OrderOptions struct {
	RequirePOSVerification bool
	TakeoutPrep            time.Duration
	DineInPrep             time.Duration
	CodeLength             int
	CodeAttempts           int
}

func DefaultOrderOptions() OrderOptions {
	return OrderOptions{
		RequirePOSVerification: true,
		TakeoutPrep:            10 * time.Minute,
		DineInPrep:             15 * time.Minute,
		CodeLength:             5,
		CodeAttempts:           10,
	}
}

type OrderServiceDeps struct {
	Repo        *OrderRepository
	Ledger      IngredientLedger
	Broadcaster realtime.Broadcaster
	Metrics     *OrderMetrics
	Notifier    *NotificationRecorder
	QR          QRLinker
}

// OrderService runs every order mutation: read, decide with lifecycle.Apply,
// write, then side effects and broadcast.
type OrderService struct {
	repo        *OrderRepository
	ledger      IngredientLedger
	broadcaster realtime.Broadcaster
	metrics     *OrderMetrics
	notifier    *NotificationRecorder
	qr          QRLinker
	codes       *CodeGenerator
	opts        OrderOptions
	now         func() time.Time
}

func NewOrderService(deps OrderServiceDeps, opts OrderOptions) *OrderService {
	s := &OrderService{
		repo:        deps.Repo,
		ledger:      deps.Ledger,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		notifier:    deps.Notifier,
		qr:          deps.QR,
		codes:       NewCodeGenerator(opts.CodeLength, opts.CodeAttempts),
		opts:        opts,
		now:         time.Now,
	}
	if s.broadcaster == nil {
		s.broadcaster = realtime.NopBroadcaster{}
	}
	return s
}

// WithClock replaces the time source.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	method, orderType, err := validateCreate(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prep := s.opts.DineInPrep
	if orderType == lifecycle.OrderTypeTakeout {
		prep = s.opts.TakeoutPrep
	}

	order := &models.Order{
		OrderID:            NewOrderID(now),
		CustomerName:       strings.TrimSpace(in.CustomerInfo.Name),
		CustomerPhone:      strings.TrimSpace(in.CustomerInfo.Phone),
		CustomerEmail:      strings.TrimSpace(in.CustomerInfo.Email),
		Status:             string(lifecycle.InitialStatus(method, s.opts.RequirePOSVerification)),
		PaymentStatus:      string(lifecycle.PaymentPending),
		PaymentMethod:      string(method),
		OrderType:          string(orderType),
		TotalAmount:        in.TotalAmount.Round(2),
		Notes:              strings.TrimSpace(in.Notes),
		OrderTime:          now,
		EstimatedReadyTime: now.Add(prep),
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.resolveTable(tx, orderType, in)
		if err != nil {
			return err
		}
		if orderType == lifecycle.OrderTypeDineIn {
			number := strings.TrimSpace(in.TableNumber)
			if table != nil {
				number = table.TableNumber
				order.TableID = &table.ID
			}
			order.TableNumber = &number
		}

		items := make([]models.LineItem, len(in.Items))
		for i, item := range in.Items {
			item.Ingredients = nil
			items[i] = item
		}
		if s.ledger != nil {
			if items, err = s.ledger.Annotate(ctx, tx, items); err != nil {
				return err
			}
		}
		if err := order.SetLineItems(items); err != nil {
			return err
		}

		code, err := s.codes.Generate(ctx, now, func(c string) (bool, error) {
			return s.repo.OrderNumberInUse(ctx, tx, c, now)
		})
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNumber = code

		if order.QueuePosition, err = s.repo.NextQueuePosition(ctx, tx, now); err != nil {
			return fmt.Errorf("queue position: %w", err)
		}

		if s.qr != nil {
			if link, err := s.qr.Link(order); err != nil {
				utils.ErrorLogger.Errorf("QR link for %s failed: %v", order.OrderID, err)
				s.metrics.ObserveSideEffectError("qr_link")
			} else {
				order.QRCode = link
			}
		}

		if err := s.repo.Create(ctx, tx, order); err != nil {
			return err
		}

		if table != nil {
			err := tx.Model(&models.Table{}).Where("id = ?", table.ID).Updates(map[string]interface{}{
				"status":        models.TableOccupied,
				"last_order_id": order.OrderID,
			}).Error
			if err != nil {
				return fmt.Errorf("update table %s: %w", table.TableNumber, err)
			}
		}

		if s.ledger != nil {
			if err := s.ledger.Reserve(ctx, tx, order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":       order.OrderID,
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_method": order.PaymentMethod,
		"queue_position": order.QueuePosition,
	}).Info("order created")

	s.metrics.ObserveCreated(order.OrderType, order.PaymentMethod)
	s.notifier.Record(ctx, order.OrderID, "New order",
		fmt.Sprintf("Order %s from %s (%s)", order.OrderNumber, order.CustomerName, utils.FormatPeso(order.TotalAmount)))

	e := realtime.NewEvent(realtime.EventNewOrder, order.OrderID)
	e.Status = order.Status
	e.PaymentStatus = order.PaymentStatus
	e.PaymentMethod = order.PaymentMethod
	e.Rooms = []string{realtime.StaffRoom, realtime.AdminRoom}
	s.broadcaster.Emit(e)

	return order, nil
}

func validateCreate(in CreateOrderInput) (lifecycle.PaymentMethod, lifecycle.OrderType, error) {
	if strings.TrimSpace(in.CustomerInfo.Name) == "" {
		return "", "", invalid("Customer name is required")
	}
	if len(in.Items) == 0 {
		return "", "", invalid("Order must contain at least one item")
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return "", "", invalid("Item quantity must be at least 1")
		}
	}
	if !in.TotalAmount.IsPositive() {
		return "", "", invalid("Invalid total amount")
	}

	method := lifecycle.NormalizePaymentMethod(in.PaymentMethod)
	if in.PaymentMethod == "" {
		method = lifecycle.MethodCash
	}
	if !method.Valid() {
		return "", "", invalid("Invalid payment method")
	}

	orderType := lifecycle.NormalizeOrderType(in.OrderType)
	if in.OrderType == "" {
		orderType = lifecycle.OrderTypeTakeout
	}
	if !orderType.Valid() {
		return "", "", invalid("Invalid order type")
	}
	if orderType == lifecycle.OrderTypeDineIn &&
		strings.TrimSpace(in.TableNumber) == "" && strings.TrimSpace(in.TableCode) == "" {
		return "", "", invalid("Table number is required for dine-in orders")
	}
	return method, orderType, nil
}

func (s *OrderService) resolveTable(tx *gorm.DB, orderType lifecycle.OrderType, in CreateOrderInput) (*models.Table, error) {
	if orderType != lifecycle.OrderTypeDineIn {
		return nil, nil
	}
	var table models.Table
	var err error
	switch {
	case strings.TrimSpace(in.TableCode) != "":
		err = tx.Where("code = ?", strings.TrimSpace(in.TableCode)).First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("Unknown table code")
		}
	default:
		err = tx.Where("table_number = ?", strings.TrimSpace(in.TableNumber)).First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// tables without a QR record are still allowed
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	return s.repo.List(ctx, f)
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.repo.FindByOrderID(ctx, strings.TrimSpace(orderID))
}

// UpdateStatus applies a payment change (if any) and then a status change
// (if any) as one write.
func (s *OrderService) UpdateStatus(ctx context.Context, p Principal, orderID string, in UpdateStatusInput) (*models.Order, error) {
	var cmds []lifecycle.Command
	if in.PaymentStatus != "" {
		ps := lifecycle.NormalizePaymentStatus(in.PaymentStatus)
		if !ps.Valid() {
			return nil, invalid("Invalid payment status")
		}
		cmds = append(cmds, lifecycle.Command{Trigger: lifecycle.TriggerSetPayment, Payment: ps})
	}
	if in.Status != "" {
		st := lifecycle.NormalizeStatus(in.Status)
		if !st.Valid() {
			return nil, invalid("Invalid status")
		}
		cmds = append(cmds, lifecycle.Command{Trigger: lifecycle.TriggerAdvance, Target: st})
	}
	if len(cmds) == 0 {
		return nil, invalid("Status or payment status is required")
	}
	return s.mutate(ctx, p, orderID, mutation{
		commands:    cmds,
		reason:      in.CancellationReason,
		cancelledBy: in.CancelledBy,
	})
}

// VerifyPayment marks the order paid and moves it straight to preparing.
func (s *OrderService) VerifyPayment(ctx context.Context, p Principal, orderID string, in VerifyPaymentInput) (*models.Order, error) {
	return s.mutate(ctx, p, orderID, mutation{
		commands:  []lifecycle.Command{{Trigger: lifecycle.TriggerVerifyAndStart}},
		reference: in.Reference,
		notes:     in.Notes,
		receiptID: in.ReceiptID,
	})
}

func (s *OrderService) Cancel(ctx context.Context, p Principal, orderID, reason string) (*models.Order, error) {
	return s.mutate(ctx, p, orderID, mutation{
		commands: []lifecycle.Command{{Trigger: lifecycle.TriggerCancel}},
		reason:   reason,
	})
}

func (s *OrderService) SetPaymentStatus(ctx context.Context, p Principal, orderID, status string) (*models.Order, error) {
	ps := lifecycle.NormalizePaymentStatus(status)
	if !ps.Valid() {
		return nil, invalid("Invalid payment status")
	}
	return s.mutate(ctx, p, orderID, mutation{
		commands: []lifecycle.Command{{Trigger: lifecycle.TriggerSetPayment, Payment: ps}},
	})
}

type mutation struct {
	commands    []lifecycle.Command
	reason      string
	cancelledBy string
	reference   string
	notes       string
	receiptID   *uint
}

func (s *OrderService) mutate(ctx context.Context, p Principal, orderID string, m mutation) (*models.Order, error) {
	order, err := s.repo.FindByOrderID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}

	before := lifecycle.State{
		Status:        lifecycle.NormalizeStatus(order.Status),
		PaymentStatus: lifecycle.NormalizePaymentStatus(order.PaymentStatus),
		PaymentMethod: lifecycle.NormalizePaymentMethod(order.PaymentMethod),
	}
	state := before
	var eff lifecycle.Effects
	for _, cmd := range m.commands {
		out, err := lifecycle.Apply(state, cmd)
		if err != nil {
			return nil, err
		}
		state = out.State
		eff.DeductIngredients = eff.DeductIngredients || out.DeductIngredients
		eff.RestoreInventory = eff.RestoreInventory || out.RestoreInventory
		eff.SetCompletedTime = eff.SetCompletedTime || out.SetCompletedTime
		eff.RecordCancellation = eff.RecordCancellation || out.RecordCancellation
		eff.RecordPayment = eff.RecordPayment || out.RecordPayment
	}

	statusChanged := state.Status != before.Status
	paymentChanged := state.PaymentStatus != before.PaymentStatus
	now := s.now()
	actor := p.actorOr("system")
	if !statusChanged && !paymentChanged {
		if m.receiptID == nil {
			return order, nil
		}
		// already settled, the receipt still has to leave pending
		err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.markReceiptVerified(tx, order.OrderID, actor, m, now)
		})
		if err != nil {
			return nil, err
		}
		return order, nil
	}

	fields := map[string]interface{}{"updated_at": now}
	if statusChanged {
		fields["status"] = string(state.Status)
	}
	if paymentChanged {
		fields["payment_status"] = string(state.PaymentStatus)
	}
	if p.IsStaff() && p.ActorID != "" {
		fields["staff_id"] = p.ActorID
	}
	if eff.SetCompletedTime {
		fields["completed_time"] = now
	}
	if eff.RecordCancellation {
		by := strings.TrimSpace(m.cancelledBy)
		if by == "" {
			by = p.actorOr(RoleAdmin)
		}
		fields["cancelled_by"] = by
		fields["cancellation_reason"] = strings.TrimSpace(m.reason)
		fields["cancelled_at"] = now
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, order.OrderID, fields); err != nil {
			return err
		}
		if eff.RestoreInventory && s.ledger != nil {
			if err := s.ledger.Restore(ctx, tx, order, actor); err != nil {
				return fmt.Errorf("restore inventory: %w", err)
			}
		}
		if eff.RecordPayment {
			if err := s.recordPayment(tx, order, p, m); err != nil {
				return err
			}
		}
		if m.receiptID != nil {
			if err := s.markReceiptVerified(tx, order.OrderID, actor, m, now); err != nil {
				return err
			}
		}
		if state.Status.Terminal() && order.TableID != nil {
			err := tx.Model(&models.Table{}).
				Where("id = ? AND last_order_id = ?", *order.TableID, order.OrderID).
				Update("status", models.TableAvailable).Error
			if err != nil {
				return fmt.Errorf("release table: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if eff.DeductIngredients && s.ledger != nil {
		if err := s.ledger.Deduct(ctx, order, actor); err != nil {
			utils.ErrorLogger.WithField("order_id", order.OrderID).Errorf("Ingredient deduction failed: %v", err)
			s.metrics.ObserveDeductionFailure()
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":       order.OrderID,
		"status":         state.Status,
		"payment_status": state.PaymentStatus,
		"actor":          actor,
	}).Info("order updated")

	if statusChanged {
		s.metrics.ObserveTransition(string(state.Status))
	}
	if paymentChanged {
		s.metrics.ObservePayment(string(state.PaymentMethod), string(state.PaymentStatus))
	}
	switch {
	case eff.RecordCancellation:
		s.notifier.Record(ctx, order.OrderID, "Order cancelled",
			fmt.Sprintf("Order %s was cancelled: %s", order.OrderNumber, strings.TrimSpace(m.reason)))
	case eff.RecordPayment:
		s.notifier.Record(ctx, order.OrderID, "Payment verified",
			fmt.Sprintf("Payment for order %s (%s) is confirmed", order.OrderNumber, utils.FormatPeso(order.TotalAmount)))
	}

	s.broadcast(order.OrderID, state, statusChanged, paymentChanged)

	updated, err := s.repo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// markReceiptVerified moves a pending receipt to verified in the same
// transaction that settles its order.
func (s *OrderService) markReceiptVerified(tx *gorm.DB, orderID, actor string, m mutation, now time.Time) error {
	res := tx.Model(&models.PaymentReceipt{}).
		Where("id = ? AND order_id = ? AND status = ?", *m.receiptID, orderID, models.ReceiptPending).
		Updates(map[string]interface{}{
			"status":      models.ReceiptVerified,
			"reviewed_by": actor,
			"reviewed_at": now,
			"notes":       strings.TrimSpace(m.notes),
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("verify receipt %d: %w", *m.receiptID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrReceiptReviewed
	}
	return nil
}

func (s *OrderService) recordPayment(tx *gorm.DB, order *models.Order, p Principal, m mutation) error {
	ref := strings.TrimSpace(m.reference)
	if ref == "" {
		ref = "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}
	txn := models.PaymentTransaction{
		OrderID:   order.OrderID,
		Amount:    order.TotalAmount,
		Method:    order.PaymentMethod,
		Status:    string(lifecycle.PaymentPaid),
		Reference: ref,
		ReceiptID: m.receiptID,
		Notes:     m.notes,
	}
	if p.ActorID != "" {
		actor := p.ActorID
		txn.VerifiedBy = &actor
	}
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

// broadcast sends only the fields that changed.
func (s *OrderService) broadcast(orderID string, state lifecycle.State, statusChanged, paymentChanged bool) {
	e := realtime.NewEvent(realtime.EventOrderUpdated, orderID)
	if statusChanged {
		e.Status = string(state.Status)
	}
	if paymentChanged {
		e.PaymentStatus = string(state.PaymentStatus)
	}
	s.broadcaster.Emit(e)

	if paymentChanged {
		pe := realtime.NewEvent(realtime.EventPaymentUpdated, orderID)
		pe.PaymentStatus = string(state.PaymentStatus)
		pe.PaymentMethod = string(state.PaymentMethod)
		s.broadcaster.Emit(pe)
	}
}
