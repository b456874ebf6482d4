package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Mutation("create", "ok")
	m.Mutation("create", "ok")
	m.Mutation("finalize", "transition")
	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()
	m.SubscriptionFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("finalize", "transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptionFailures))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("create", "ok")
		m.SubscriptionOpened()
		m.SubscriptionClosed()
		m.SubscriptionFailed()
	})
}
