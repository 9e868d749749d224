package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssignmentMetrics counts distribution-engine outcomes by result label.
type AssignmentMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewAssignmentMetrics registers the assignment outcome counter.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_assignments_total",
		Help: "Order assignment attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &AssignmentMetrics{outcomes: outcomes}
}

// IncOutcome increments the counter for the given outcome label.
func (m *AssignmentMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
