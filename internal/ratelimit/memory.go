package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/docpilot/portal/internal/model"
)

var _ model.AttemptStore = (*MemoryStore)(nil)

// MemoryStore keeps records in a process-wide map. Records are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*model.RateLimitRecord
	window  time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore whose records expire after window.
func NewMemoryStore(window time.Duration) *MemoryStore {
	return NewMemoryStoreWithClock(window, time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with an injected clock.
func NewMemoryStoreWithClock(window time.Duration, now func() time.Time) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.RateLimitRecord),
		window:  window,
		now:     now,
	}
}

// Load returns the live record for key. An expired record is removed.
func (s *MemoryStore) Load(_ context.Context, key string) (model.RateLimitRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.live(key, s.now())
	if rec == nil {
		return model.RateLimitRecord{}, false, nil
	}
	return *rec, true, nil
}

// Record increments the attempt count for key.
func (s *MemoryStore) Record(_ context.Context, key string) (model.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.increment(key, s.now()), nil
}

// TryRecord increments the attempt count only while it is below limit.
func (s *MemoryStore) TryRecord(_ context.Context, key string, limit int) (model.RateLimitRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec := s.live(key, now); rec != nil && rec.AttemptCount >= limit {
		return *rec, false, nil
	}
	return s.increment(key, now), true, nil
}

// Sweep removes expired records and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for key, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps expired records every interval until ctx is done.
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

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// live must be called with mu held.
func (s *MemoryStore) live(key string, now time.Time) *model.RateLimitRecord {
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	if s.expired(rec, now) {
		delete(s.records, key)
		return nil
	}
	return rec
}

// increment must be called with mu held.
func (s *MemoryStore) increment(key string, now time.Time) model.RateLimitRecord {
	rec := s.live(key, now)
	if rec == nil {
		rec = &model.RateLimitRecord{SessionKey: key}
		s.records[key] = rec
	}
	rec.AttemptCount++
	rec.LastAttempt = now
	return *rec
}

func (s *MemoryStore) expired(rec *model.RateLimitRecord, now time.Time) bool {
	return now.Sub(rec.LastAttempt) > s.window
}
