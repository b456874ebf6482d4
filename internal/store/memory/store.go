// Package memory is an in-process RequestStore. It honours the same query
// and push semantics as the Mongo driver and backs the test suites and the
// "memory" store driver.
package memory

import (
	"context"
	"sync"

	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"

	"github.com/google/uuid"
)

var _ store.RequestStore = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	records  map[string]models.PartRequest
	order    []string
	watchers map[*watcher]struct{}
}

func NewStore() *Store {
	return &Store{
		records:  make(map[string]models.PartRequest),
		watchers: make(map[*watcher]struct{}),
	}
}

func (s *Store) Insert(ctx context.Context, r models.PartRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	r = r.Clone()
	r.ID = id

	s.mu.Lock()
	s.records[id] = r
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.notify()
	return id, nil
}

func (s *Store) Update(ctx context.Context, id string, p store.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	r = r.Clone()
	p.Apply(&r)
	s.records[id] = r
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.PartRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.PartRequest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return models.PartRequest{}, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) Find(ctx context.Context, q store.Query) ([]models.PartRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.PartRequest, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		if q.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	q.Sort(out)
	return out, nil
}

// Watch delivers the current result set straight away and again after each
// batch of mutations. Mutations that land while a callback is running are
// coalesced into a single follow-up delivery.
func (s *Store) Watch(ctx context.Context, q store.Query, fn store.SnapshotFunc) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &watcher{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	w.signal <- struct{}{}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go w.run(ctx, s, q, fn)

	return store.SubscriptionFunc(func() {
		w.once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
			close(w.done)
		})
		<-w.exited
	}), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Watchers returns the number of live subscriptions.
func (s *Store) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for w := range s.watchers {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

type watcher struct {
	signal chan struct{}
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func (w *watcher) run(ctx context.Context, s *Store, q store.Query, fn store.SnapshotFunc) {
	defer close(w.exited)
	defer func() {
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
	}()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-w.signal:
		}
		// Cancel may have raced the signal.
		select {
		case <-w.done:
			return
		default:
		}
		records, err := s.Find(context.WithoutCancel(ctx), q)
		fn(records, err)
	}
}
