package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		status  string
		payment string
		want    int
	}{
		{"pending", "pending", 20},
		{"pending_verification", "pending", 20},
		{"pending", "paid", 40},
		{"pending_verification", "paid", 40},
		{"confirmed", "pending", 40},
		{"payment_confirmed", "paid", 40},
		{"processing", "paid", 60},
		{"preparing", "pending", 60},
		{"ready", "paid", 80},
		{"ready", "pending", 40},
		{"completed", "paid", 100},
		{"cancelled", "paid", 0},
		{"  READY ", " Paid", 80},
		{"", "paid", 40},
		{"mystery", "pending", 20},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.payment, func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(tt.status, tt.payment))
		})
	}
}

func TestProgress_PaymentPrecedence(t *testing.T) {
	for _, s := range []string{"pending", "pending_verification", "Pending", " pending_verification"} {
		assert.Equal(t, 40, Progress(s, "paid"), s)
	}
}

func TestProgress_MonotonicAlongReachablePaths(t *testing.T) {
	paths := [][]State{
		{
			{StatusPendingVerification, PaymentPending, MethodGCash},
			{StatusPaymentConfirmed, PaymentPaid, MethodGCash},
			{StatusPreparing, PaymentPaid, MethodGCash},
			{StatusReady, PaymentPaid, MethodGCash},
			{StatusCompleted, PaymentPaid, MethodGCash},
		},
		{
			{StatusPending, PaymentPending, MethodCash},
			{StatusPreparing, PaymentPending, MethodCash},
			{StatusPreparing, PaymentPaid, MethodCash},
			{StatusReady, PaymentPaid, MethodCash},
			{StatusCompleted, PaymentPaid, MethodCash},
		},
		{
			{StatusPending, PaymentPending, MethodCash},
			{StatusPending, PaymentPaid, MethodCash},
			{StatusCancelled, PaymentPaid, MethodCash},
		},
	}

	for _, path := range paths {
		last := -1
		for _, st := range path {
			p := Progress(string(st.Status), string(st.PaymentStatus))
			if st.Status == StatusCancelled {
				assert.Equal(t, 0, p)
				continue
			}
			assert.GreaterOrEqual(t, p, last, "%+v", st)
			last = p
		}
	}
}

func TestProgress_ReadyWithoutPaymentIsCapped(t *testing.T) {
	assert.Equal(t, 40, Progress("ready", "pending"))
	assert.Equal(t, 80, Progress("ready", "paid"))
}

func TestStatusLabel(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.Equal(t, "Verifying payment", StatusLabel(nil, ""))
	assert.Equal(t, "Verifying payment", StatusLabel(str("  "), "pending"))
	assert.Equal(t, "Payment confirmed", StatusLabel(str("pending"), "paid"))
	assert.Equal(t, "Preparing your order", StatusLabel(str("processing"), "paid"))
	assert.Equal(t, "Awaiting payment", StatusLabel(str("ready"), "pending"))
	assert.Equal(t, "Ready for pickup", StatusLabel(str("ready"), "paid"))
	assert.Equal(t, "Cancelled", StatusLabel(str("cancelled"), "paid"))
	assert.Equal(t, "Verifying payment", StatusLabel(str("garbage"), "pending"))
}
