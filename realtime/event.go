package realtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventNewOrder       EventType = "new-order-received"
	EventOrderUpdated   EventType = "order-updated"
	EventPaymentUpdated EventType = "payment-updated"
)

var ErrMissingOrderID = errors.New("event has no order identifier")

// Event is the single payload shape pushed to clients. Only OrderID is
// required; the remaining fields are present when they changed.
type Event struct {
	Type          EventType `json:"type"`
	OrderID       string    `json:"orderId"`
	Status        string    `json:"status,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Rooms         []string  `json:"rooms,omitempty"`
}

func NewEvent(t EventType, orderID string) Event {
	return Event{
		Type:      t,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Rooms:     OrderRooms(orderID),
	}
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.OrderID) == "" {
		return ErrMissingOrderID
	}
	switch e.Type {
	case EventNewOrder, EventOrderUpdated, EventPaymentUpdated:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// NormalizePayload turns a loosely shaped producer payload into an Event.
// Older producers used internalOrderId, order_id or id for the identifier and
// snake_case payment keys.
func NormalizePayload(t EventType, raw map[string]interface{}) (Event, error) {
	e := Event{Type: t, Timestamp: time.Now().UTC()}

	e.OrderID = firstString(raw, "orderId", "internalOrderId", "order_id", "id")
	e.Status = firstString(raw, "status")
	e.PaymentStatus = firstString(raw, "paymentStatus", "payment_status")
	e.PaymentMethod = firstString(raw, "paymentMethod", "payment_method")

	if ts := firstString(raw, "timestamp"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
	}
	if e.OrderID == "" {
		return e, ErrMissingOrderID
	}
	e.Rooms = OrderRooms(e.OrderID)
	return e, e.Validate()
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case float64:
			s = fmt.Sprintf("%.0f", tv)
		default:
			s = fmt.Sprint(tv)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
