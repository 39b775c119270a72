package queue

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the offline queue.
type Metrics struct {
	EnqueuesTotal prometheus.Counter
	FlushesTotal  prometheus.Counter
	Delivered     prometheus.Counter
	Kept          prometheus.Counter
	Depth         prometheus.Gauge
}

// NewMetrics registers and returns queue metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EnqueuesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_queue_enqueues_total",
			Help: "Total incidents placed on the offline queue.",
		}),
		FlushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_queue_flushes_total",
			Help: "Total flush cycles run.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_queue_delivered_total",
			Help: "Queued incidents delivered during flush.",
		}),
		Kept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_queue_kept_total",
			Help: "Queued incidents kept after a failed flush attempt.",
		}),
		Depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_queue_depth",
			Help: "Current number of queued incidents.",
		}),
	}

	reg.MustRegister(m.EnqueuesTotal, m.FlushesTotal, m.Delivered, m.Kept, m.Depth)
	return m
}

// Hooks adapts the metrics into queue lifecycle hooks.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnEnqueue: func() { m.EnqueuesTotal.Inc() },
		OnFlush: func(delivered, kept int) {
			m.FlushesTotal.Inc()
			m.Delivered.Add(float64(delivered))
			m.Kept.Add(float64(kept))
		},
		OnDepth: func(depth int) { m.Depth.Set(float64(depth)) },
	}
}
