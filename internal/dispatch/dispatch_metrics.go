package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/guardian/internal/incident"
)

// Metrics holds Prometheus metrics for the dispatch subsystem.
type Metrics struct {
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	AttemptsTotal    *prometheus.CounterVec
	LocationFixes    *prometheus.CounterVec
}

// NewMetrics registers and returns dispatch metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_dispatches_total",
			Help: "Total dispatch runs by aggregate status.",
		}, []string{"status"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guardian_dispatch_duration_seconds",
			Help:    "Duration of dispatch runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"status"}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_delivery_attempts_total",
			Help: "Total channel delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		LocationFixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_location_fixes_total",
			Help: "Location snapshot attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.DispatchesTotal,
		m.DispatchDuration,
		m.AttemptsTotal,
		m.LocationFixes,
	)
	return m
}

// Hooks adapts the metrics into dispatch lifecycle hooks.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnDispatch: func(status incident.Status, dur time.Duration) {
			m.DispatchesTotal.WithLabelValues(string(status)).Inc()
			m.DispatchDuration.WithLabelValues(string(status)).Observe(dur.Seconds())
		},
		OnAttempt: func(channel incident.Channel, outcome incident.Outcome) {
			m.AttemptsTotal.WithLabelValues(string(channel), string(outcome)).Inc()
		},
		OnLocation: func(ok bool) {
			result := "miss"
			if ok {
				result = "fix"
			}
			m.LocationFixes.WithLabelValues(result).Inc()
		},
	}
}
