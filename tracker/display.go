package tracker

import (
	"time"

	"github.com/yeremiapane/cafe-app/lifecycle"
)

// Order is the client's copy of an order as served by the API.
type Order struct {
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"shortOrderCode"`
	CustomerName  string    `json:"customerName"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	PaymentMethod string    `json:"paymentMethod"`
	OrderType     string    `json:"orderType"`
	QueuePosition int       `json:"queuePosition"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (o Order) paid() bool {
	return lifecycle.NormalizePaymentStatus(o.PaymentStatus) == lifecycle.PaymentPaid
}

// View is what a screen renders for one order.
type View struct {
	Order
	DisplayStatus string
	Progress      int
	Label         string
	ConfirmedAt   time.Time
}

// Display projects the stored fields plus the local confirmed-at time onto the
// status a client shows. It never feeds back into the order itself.
//
// Inside the window after payment confirmation the order shows
// payment_confirmed, even if a later kitchen status is already cached. Once
// the window has passed, an order not yet beyond payment_confirmed shows
// preparing.
func Display(o Order, confirmedAt, now time.Time, window time.Duration) string {
	st := lifecycle.NormalizeStatus(o.Status)
	if st.Terminal() || confirmedAt.IsZero() || !o.paid() {
		return string(st)
	}
	if now.Before(confirmedAt.Add(window)) {
		return string(lifecycle.StatusPaymentConfirmed)
	}
	if st.Rank() >= 0 && st.Rank() <= lifecycle.StatusPaymentConfirmed.Rank() {
		return string(lifecycle.StatusPreparing)
	}
	return string(st)
}

func project(o Order, confirmedAt, now time.Time, window time.Duration) View {
	display := Display(o, confirmedAt, now, window)
	return View{
		Order:         o,
		DisplayStatus: display,
		Progress:      lifecycle.Progress(display, o.PaymentStatus),
		Label:         lifecycle.StatusLabel(&display, o.PaymentStatus),
		ConfirmedAt:   confirmedAt,
	}
}
