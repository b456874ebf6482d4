package session

import (
	"context"
	"sync"
	"time"

	"part-request-portal-api-server/internal/models"

	"github.com/google/uuid"
)

type entry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and the "memory" driver.
type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
}

func (s *MemoryStore) Create(_ context.Context, id models.Identity) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ID] = entry{session: sess, expiresAt: s.now().Add(s.ttl)}
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(sessionID)
	if err != nil {
		return Session{}, err
	}
	return e.session, nil
}

func (s *MemoryStore) PinScope(_ context.Context, sessionID, registrationNumber string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(sessionID)
	if err != nil {
		return Session{}, err
	}
	e.session = pin(e.session, registrationNumber)
	s.m[sessionID] = e
	return e.session, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sessionID)
	return nil
}

// lookup must be called with s.mu held.
func (s *MemoryStore) lookup(sessionID string) (entry, error) {
	e, ok := s.m[sessionID]
	if !ok {
		return entry{}, ErrNotFound
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.m, sessionID)
		return entry{}, ErrNotFound
	}
	return e, nil
}
