package notify

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts notification outcomes. The registry is owned by the
// application, not the package-global default, so tests can construct
// isolated instances.
type Metrics struct {
	Emitted  *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// NewMetrics creates and registers the notification counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docket",
			Subsystem: "notify",
			Name:      "emitted_total",
			Help:      "Notifications emitted, by related entity type.",
		}, []string{"related_type"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docket",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notification emissions that failed, by related entity type.",
		}, []string{"related_type"}),
	}
	reg.MustRegister(m.Emitted, m.Failures)
	return m
}
