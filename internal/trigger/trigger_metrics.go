package trigger

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the arbitration subsystem.
type Metrics struct {
	SubmitsTotal       *prometheus.CounterVec
	CancellationsTotal prometheus.Counter
	IncidentsTotal     *prometheus.CounterVec
}

// NewMetrics registers and returns trigger metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_trigger_submits_total",
			Help: "Total trigger signal submissions by arbitration result.",
		}, []string{"result"}),
		CancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_countdown_cancellations_total",
			Help: "Total countdowns cancelled by the user.",
		}),
		IncidentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_incidents_total",
			Help: "Total incidents by terminal status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.SubmitsTotal, m.CancellationsTotal, m.IncidentsTotal)
	return m
}
