package order

import "github.com/prometheus/client_golang/prometheus"

var operationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_operations_total",
		Help: "Checkout operations by outcome",
	},
	[]string{"operation", "outcome"},
)

var transitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Out of band status transitions by kind and whether an order matched",
	},
	[]string{"kind", "matched"},
)

func init() {
	prometheus.MustRegister(operationsTotal)
	prometheus.MustRegister(transitionsTotal)
}

func recordTransition(kind string, matched bool) {
	m := "false"
	if matched {
		m = "true"
	}
	transitionsTotal.WithLabelValues(kind, m).Inc()
}
