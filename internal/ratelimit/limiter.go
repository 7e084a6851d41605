// Package ratelimit bounds password-reset attempts per recovery session.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/docpilot/portal/internal/model"
)

const (
	// MaxAttempts is the number of attempts allowed within Window.
	MaxAttempts = 5
	// Window is how long a record lives after its last attempt.
	Window = 15 * time.Minute
)

// Limiter applies the attempt policy on top of an AttemptStore.
type Limiter struct {
	store model.AttemptStore
}

// New creates a Limiter backed by store.
func New(store model.AttemptStore) *Limiter {
	return &Limiter{store: store}
}

// CanAttempt reports whether key may make another attempt.
func (l *Limiter) CanAttempt(ctx context.Context, key string) (bool, error) {
	rec, ok, err := l.store.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load attempts: %w", err)
	}
	if !ok {
		return true, nil
	}
	return rec.AttemptCount < MaxAttempts, nil
}

// RecordAttempt counts one attempt for key.
func (l *Limiter) RecordAttempt(ctx context.Context, key string) error {
	if _, err := l.store.Record(ctx, key); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RemainingAttempts returns how many attempts key has left in the window.
func (l *Limiter) RemainingAttempts(ctx context.Context, key string) (int, error) {
	rec, ok, err := l.store.Load(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to load attempts: %w", err)
	}
	if !ok {
		return MaxAttempts, nil
	}
	return remaining(rec.AttemptCount), nil
}

// TryConsume checks and records an attempt in one step. It returns false
// without recording when key has no attempts left.
func (l *Limiter) TryConsume(ctx context.Context, key string) (bool, int, error) {
	rec, ok, err := l.store.TryRecord(ctx, key, MaxAttempts)
	if err != nil {
		return false, 0, fmt.Errorf("failed to consume attempt: %w", err)
	}
	return ok, remaining(rec.AttemptCount), nil
}

func remaining(count int) int {
	return max(0, MaxAttempts-count)
}
