package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	emitted   *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	delivered prometheus.Counter
	clients   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "realtime",
			Name:      "events_emitted_total",
			Help:      "Events accepted for broadcast, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events or frames dropped, by reason.",
		}, []string{"reason"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "realtime",
			Name:      "frames_delivered_total",
			Help:      "Frames queued to websocket clients.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cafe",
			Subsystem: "realtime",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.emitted, m.dropped, m.delivered, m.clients)
	}
	return m
}

func (m *Metrics) emit(t EventType) {
	if m != nil {
		m.emitted.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) drop(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) deliver() {
	if m != nil {
		m.delivered.Inc()
	}
}

func (m *Metrics) connected(delta float64) {
	if m != nil {
		m.clients.Add(delta)
	}
}
