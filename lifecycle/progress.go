package lifecycle

// Progress maps (status, payment status) onto 0..100 in steps of 20.
//
// Branch order encodes payment precedence: a kitchen stage is only shown once
// payment has been shown as confirmed, so ready with a pending payment caps at 40.
// Every client surface must use this function rather than a simplified copy.
func Progress(status, paymentStatus string) int {
	s := clean(status)
	p := clean(paymentStatus)
	paid := p == string(PaymentPaid)

	if s == string(StatusCancelled) {
		return 0
	}
	if s == string(StatusPending) || s == string(StatusPendingVerification) {
		if paid {
			return 40
		}
		return 20
	}
	if s == string(StatusConfirmed) || s == string(StatusPaymentConfirmed) {
		return 40
	}
	if paid && (s == string(StatusPending) || s == string(StatusPendingVerification)) {
		return 40
	}
	if s == string(StatusProcessing) || s == string(StatusPreparing) {
		return 60
	}
	if s == string(StatusReady) {
		if paid || s == string(StatusPaymentConfirmed) {
			return 80
		}
		return 40
	}
	if s == string(StatusCompleted) {
		return 100
	}
	if paid {
		return 40
	}
	return 20
}

var statusLabels = map[Status]string{
	StatusPending:             "Order received",
	StatusPendingVerification: "Verifying payment",
	StatusPaymentConfirmed:    "Payment confirmed",
	StatusPreparing:           "Preparing your order",
	StatusReady:               "Ready for pickup",
	StatusCompleted:           "Completed",
	StatusCancelled:           "Cancelled",
}

// StatusLabel returns the display label for an order. A missing status reads
// as "Verifying payment"; an unknown one falls back on the payment axis.
func StatusLabel(status *string, paymentStatus string) string {
	if status == nil || clean(*status) == "" {
		return statusLabels[StatusPendingVerification]
	}
	st := NormalizeStatus(*status)
	paid := NormalizePaymentStatus(paymentStatus) == PaymentPaid

	if st.AwaitingPayment() && paid {
		return statusLabels[StatusPaymentConfirmed]
	}
	if st == StatusReady && !paid {
		return "Awaiting payment"
	}
	if label, ok := statusLabels[st]; ok {
		return label
	}
	if paid {
		return statusLabels[StatusPaymentConfirmed]
	}
	return statusLabels[StatusPendingVerification]
}
