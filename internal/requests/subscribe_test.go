package requests

import (
	"context"
	"errors"
	"testing"
	"time"

	"part-request-portal-api-server/internal/metrics"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"
	"part-request-portal-api-server/internal/store/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func listCollector() (ListFunc, <-chan []models.PartRequestView) {
	ch := make(chan []models.PartRequestView, 64)
	return func(list []models.PartRequestView) { ch <- list }, ch
}

func nextList(t *testing.T, ch <-chan []models.PartRequestView) []models.PartRequestView {
	t.Helper()
	select {
	case list := <-ch:
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for list")
		return nil
	}
}

// waitFor drains deliveries until one satisfies ok.
func waitFor(t *testing.T, ch <-chan []models.PartRequestView, ok func([]models.PartRequestView) bool) []models.PartRequestView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case list := <-ch:
			if ok(list) {
				return list
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching list")
			return nil
		}
	}
}

// sample reads a single-series counter or gauge from reg.
func sample(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
		return m.GetCounter().GetValue()
	}
	return 0
}

type brokenWatchStore struct {
	*memory.Store
	openErr   error
	streamErr error
}

func (s *brokenWatchStore) Watch(ctx context.Context, q store.Query, fn store.SnapshotFunc) (store.Subscription, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	go fn(nil, s.streamErr)
	return store.SubscriptionFunc(func() {}), nil
}

func TestSubscribe_SubmitterSeesOwnUnfinished(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	fn, ch := listCollector()
	sub := c.Subscribe(ctx, submitter("123"), fn)
	defer sub.Cancel()
	assert.Empty(t, nextList(t, ch))

	id := mustCreate(t, c, anonymous, input("123", item("Bolt", 2)))
	list := waitFor(t, ch, func(l []models.PartRequestView) bool { return len(l) == 1 })
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, models.StatusPending, list[0].Status)

	mustCreate(t, c, anonymous, input("456", item("Gasket", 1)))
	other := mustCreate(t, c, anonymous, input("123", item("Washer", 4)))
	require.NoError(t, c.SetStatus(ctx, admin, other, models.StatusAvailable))
	list = waitFor(t, ch, func(l []models.PartRequestView) bool {
		return len(l) == 2 && l[0].Status == models.StatusAvailable
	})
	assert.Equal(t, other, list[0].ID)
	assert.Equal(t, id, list[1].ID)

	require.NoError(t, c.Finalize(ctx, submitter("123"), other))
	list = waitFor(t, ch, func(l []models.PartRequestView) bool { return len(l) == 1 })
	for _, v := range list {
		assert.Equal(t, "123", v.RegistrationNumber)
		assert.NotEqual(t, models.StatusCompleted, v.Status)
	}
}

func TestSubscribe_AdminSeesAllNewestFirst(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	first := mustCreate(t, c, anonymous, input("123", item("Bolt", 2)))
	second := mustCreate(t, c, anonymous, input("456", item("Gasket", 1)))
	require.NoError(t, c.SetStatus(ctx, admin, first, models.StatusAvailable))
	require.NoError(t, c.Finalize(ctx, admin, first))

	fn, ch := listCollector()
	sub := c.Subscribe(ctx, admin, fn)
	defer sub.Cancel()

	list := nextList(t, ch)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, models.StatusCompleted, list[1].Status)
}

func TestSubscribe_NoScopeDeliversEmptyOnce(t *testing.T) {
	c, st, _ := newTestController(t)
	mustCreate(t, c, admin, input("123", item("Bolt", 2)))

	fn, ch := listCollector()
	sub := c.Subscribe(context.Background(), anonymous, fn)
	list := nextList(t, ch)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Equal(t, 0, st.Watchers())

	sub.Cancel()
	sub.Cancel()
}

func TestSubscribe_StoreFailureDegradesToEmpty(t *testing.T) {
	cases := map[string]*brokenWatchStore{
		"open":   {openErr: errors.New("connection refused")},
		"stream": {streamErr: errors.New("change stream closed")},
	}
	for name, st := range cases {
		t.Run(name, func(t *testing.T) {
			st.Store = memory.NewStore()
			reg := prometheus.NewRegistry()
			c := NewController(st, nil, metrics.New(reg), zap.NewNop())

			fn, ch := listCollector()
			sub := c.Subscribe(context.Background(), admin, fn)
			defer sub.Cancel()

			list := nextList(t, ch)
			assert.NotNil(t, list)
			assert.Empty(t, list)
			assert.Eventually(t, func() bool {
				return sample(t, reg, "part_requests_subscription_failures_total") == 1
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	c, st, _ := newTestController(t)
	reg := prometheus.NewRegistry()
	c.metrics = metrics.New(reg)

	fn, ch := listCollector()
	sub := c.Subscribe(context.Background(), admin, fn)
	nextList(t, ch)
	assert.Equal(t, 1.0, sample(t, reg, "part_requests_live_subscriptions"))

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0.0, sample(t, reg, "part_requests_live_subscriptions"))
	assert.Equal(t, 0, st.Watchers())

	mustCreate(t, c, admin, input("123", item("Bolt", 2)))
	select {
	case list := <-ch:
		t.Fatalf("unexpected delivery after cancel: %v", list)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeed_ResubscribeReplacesSubscription(t *testing.T) {
	c, st, _ := newTestController(t)
	ctx := context.Background()
	mustCreate(t, c, anonymous, input("123", item("Bolt", 2)))
	mustCreate(t, c, anonymous, input("456", item("Gasket", 1)))

	fn, ch := listCollector()
	feed := NewFeed(c, fn)
	defer feed.Close()

	feed.Resubscribe(ctx, anonymous)
	assert.Empty(t, nextList(t, ch))
	assert.Equal(t, 0, st.Watchers())

	feed.Resubscribe(ctx, submitter("123"))
	list := nextList(t, ch)
	require.Len(t, list, 1)
	assert.Equal(t, "123", list[0].RegistrationNumber)
	assert.Equal(t, 1, st.Watchers())

	feed.Resubscribe(ctx, submitter("456"))
	list = nextList(t, ch)
	require.Len(t, list, 1)
	assert.Equal(t, "456", list[0].RegistrationNumber)
	assert.Equal(t, 1, st.Watchers())
	assert.Equal(t, "456", feed.Identity().RegistrationNumber)

	feed.Close()
	assert.Equal(t, 0, st.Watchers())
	feed.Resubscribe(ctx, admin)
	assert.Equal(t, 0, st.Watchers())
}
