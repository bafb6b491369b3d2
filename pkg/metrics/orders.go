package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order pipeline outcomes.
type OrderMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "orders_created_total",
		Help:      "Orders accepted by the checkout pipeline.",
	}, []string{"price_verified"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "order_status_transitions_total",
		Help:      "Applied order status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "order_status_rejections_total",
		Help:      "Transitions refused by the configured policy.",
	}, []string{"from", "to"})
	reg.MustRegister(created, transitions, rejected)
	return &OrderMetrics{created: created, transitions: transitions, rejected: rejected}
}

// IncCreated records an accepted order. unverified marks orders whose
// caller-supplied prices did not match the catalog.
func (m *OrderMetrics) IncCreated(unverified bool) {
	if m == nil || m.created == nil {
		return
	}
	label := "true"
	if unverified {
		label = "false"
	}
	m.created.WithLabelValues(label).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncRejected(from, to string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
