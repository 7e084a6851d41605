// Package session keeps established recovery sessions in process memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/docpilot/portal/internal/model"
)

var _ model.SessionStore = (*MemoryStore)(nil)

type entry struct {
	session   model.Session
	expiresAt time.Time
}

// MemoryStore is a SessionStore for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with an injected clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Save stores session under key until ttl elapses.
func (s *MemoryStore) Save(_ context.Context, key string, session model.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{session: session, expiresAt: s.now().Add(ttl)}
	return nil
}

// Load returns the session under key or model.ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, key string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return model.Session{}, model.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return model.Session{}, model.ErrNotFound
	}
	return e.session, nil
}

// Delete removes the session under key. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
