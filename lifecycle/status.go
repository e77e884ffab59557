package lifecycle

import "strings"

type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingVerification Status = "pending_verification"
	StatusPaymentConfirmed    Status = "payment_confirmed"
	StatusPreparing           Status = "preparing"
	StatusReady               Status = "ready"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"

	// Aliases still emitted by older producers.
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodGCash   PaymentMethod = "gcash"
	MethodPayMaya PaymentMethod = "paymaya"
)

type OrderType string

const (
	OrderTypeDineIn  OrderType = "dine_in"
	OrderTypeTakeout OrderType = "takeout"
)

var statusRank = map[Status]int{
	StatusPending:             0,
	StatusPendingVerification: 1,
	StatusPaymentConfirmed:    2,
	StatusPreparing:           3,
	StatusReady:               4,
	StatusCompleted:           5,
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeStatus lowercases, trims and folds aliases onto their canonical
// name. Unknown values are returned cleaned but otherwise untouched.
func NormalizeStatus(s string) Status {
	switch st := Status(clean(s)); st {
	case StatusConfirmed:
		return StatusPaymentConfirmed
	case StatusProcessing:
		return StatusPreparing
	default:
		return st
	}
}

func NormalizePaymentStatus(s string) PaymentStatus {
	return PaymentStatus(clean(s))
}

func NormalizePaymentMethod(s string) PaymentMethod {
	return PaymentMethod(clean(s))
}

func NormalizeOrderType(s string) OrderType {
	switch v := clean(s); v {
	case "dine-in", "dinein":
		return OrderTypeDineIn
	case "take-out", "take_out":
		return OrderTypeTakeout
	default:
		return OrderType(v)
	}
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Rank orders the forward progression. Cancelled has no rank and returns -1.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// AwaitingPayment covers the statuses that precede payment confirmation.
func (s Status) AwaitingPayment() bool {
	return s == StatusPending || s == StatusPendingVerification
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodGCash, MethodPayMaya:
		return true
	}
	return false
}

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeout
}
