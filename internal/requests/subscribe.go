package requests

import (
	"context"
	"sync"

	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"

	"go.uber.org/zap"
)

// ListFunc receives the caller's full ordered list after every change.
type ListFunc func([]models.PartRequestView)

type noopSubscription struct{}

func (noopSubscription) Cancel() {}

// Subscribe opens a live view of the caller's scope. fn receives the whole
// ordered list on open and after every change batch. Store failures are
// logged and delivered as an empty list; Subscribe itself never fails.
func (c *Controller) Subscribe(ctx context.Context, id models.Identity, fn ListFunc) store.Subscription {
	scope := ResolveScope(id)
	if scope.Empty {
		fn([]models.PartRequestView{})
		return noopSubscription{}
	}

	sub, err := c.store.Watch(ctx, scope.Query, func(records []models.PartRequest, err error) {
		if err != nil {
			c.subscriptionFailed(id, err)
			fn([]models.PartRequestView{})
			return
		}
		fn(ProjectAll(id, records))
	})
	if err != nil {
		c.subscriptionFailed(id, err)
		fn([]models.PartRequestView{})
		return noopSubscription{}
	}

	c.metrics.SubscriptionOpened()
	var once sync.Once
	return store.SubscriptionFunc(func() {
		once.Do(func() {
			sub.Cancel()
			c.metrics.SubscriptionClosed()
		})
	})
}

func (c *Controller) subscriptionFailed(id models.Identity, err error) {
	c.metrics.SubscriptionFailed()
	c.logger.Error("Error listening to requests",
		zap.String("role", string(id.Role)),
		zap.Bool("scoped", id.HasScope()),
		zap.Error(err),
	)
}

// Feed keeps at most one live subscription for a caller. Resubscribe
// cancels the current subscription before opening the next one, so two
// scopes never deliver into the same sink.
type Feed struct {
	controller *Controller
	fn         ListFunc

	mu       sync.Mutex
	sub      store.Subscription
	identity models.Identity
	closed   bool
}

func NewFeed(c *Controller, fn ListFunc) *Feed {
	return &Feed{controller: c, fn: fn}
}

// Resubscribe switches the feed to id's scope.
func (f *Feed) Resubscribe(ctx context.Context, id models.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.sub != nil {
		f.sub.Cancel()
		f.sub = nil
	}
	f.identity = id
	f.sub = f.controller.Subscribe(ctx, id, f.fn)
}

// Identity returns the identity the feed is currently scoped to.
func (f *Feed) Identity() models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

// Close cancels the live subscription. The feed cannot be reused.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.sub != nil {
		f.sub.Cancel()
		f.sub = nil
	}
}
