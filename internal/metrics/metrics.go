// Package metrics holds the Prometheus collectors for request mutations and
// live subscriptions. A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	mutations            *prometheus.CounterVec
	subscriptions        prometheus.Gauge
	subscriptionFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "part_requests",
			Name:      "mutations_total",
			Help:      "Request mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "part_requests",
			Name:      "live_subscriptions",
			Help:      "Currently open request subscriptions.",
		}),
		subscriptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "part_requests",
			Name:      "subscription_failures_total",
			Help:      "Subscription failures degraded to an empty result set.",
		}),
	}
	reg.MustRegister(m.mutations, m.subscriptions, m.subscriptionFailures)
	return m
}

func (m *Metrics) Mutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) SubscriptionFailed() {
	if m == nil {
		return
	}
	m.subscriptionFailures.Inc()
}
