package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order flow counters. A nil *OrderMetrics is valid and
// records nothing.
type OrderMetrics struct {
	created           *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	payments          *prometheus.CounterVec
	deductionFailures prometheus.Counter
	sideEffectErrors  *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	m := &OrderMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "orders_created_total",
			Help:      "Orders created, by order type and payment method.",
		}, []string{"order_type", "payment_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "order_transitions_total",
			Help:      "Stored order status changes, by resulting status.",
		}, []string{"status"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "order_payments_total",
			Help:      "Payment status changes, by method and resulting payment status.",
		}, []string{"payment_method", "payment_status"}),
		deductionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "ingredient_deduction_failures_total",
			Help:      "Ingredient deductions that failed and were skipped.",
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "order_side_effect_errors_total",
			Help:      "Swallowed side-effect failures, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.transitions, m.payments, m.deductionFailures, m.sideEffectErrors)
	}
	return m
}

func (m *OrderMetrics) ObserveCreated(orderType, method string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(orderType, method).Inc()
}

func (m *OrderMetrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *OrderMetrics) ObservePayment(method, status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, status).Inc()
}

func (m *OrderMetrics) ObserveDeductionFailure() {
	if m == nil {
		return
	}
	m.deductionFailures.Inc()
}

func (m *OrderMetrics) ObserveSideEffectError(kind string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.WithLabelValues(kind).Inc()
}
