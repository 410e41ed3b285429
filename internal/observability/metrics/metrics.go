package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking client.
type BookingMetrics struct {
	confirmTotal      *prometheus.CounterVec
	stepLatency       *prometheus.HistogramVec
	directoryFailures prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		confirmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "booking",
			Name:      "confirm_total",
			Help:      "Confirm attempts by outcome",
		}, []string{"outcome"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medibook",
			Subsystem: "booking",
			Name:      "step_latency_seconds",
			Help:      "Latency of each confirm step (order, checkout, verify, persist)",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "status"}),
		directoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "directory",
			Name:      "fetch_failures_total",
			Help:      "Directory fetches that failed and degraded to an empty list",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.confirmTotal, m.stepLatency, m.directoryFailures)
	return m
}

func (m *BookingMetrics) ObserveConfirm(outcome string) {
	if m == nil {
		return
	}
	m.confirmTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStep(step, status string, seconds float64) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(step, status).Observe(seconds)
}

func (m *BookingMetrics) ObserveDirectoryFailure() {
	if m == nil {
		return
	}
	m.directoryFailures.Inc()
}
