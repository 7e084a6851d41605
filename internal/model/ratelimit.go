package model

import (
	"context"
	"time"
)

// RateLimitRecord tracks attempts for one session key.
type RateLimitRecord struct {
	SessionKey   string
	AttemptCount int
	LastAttempt  time.Time
}

// AttemptStore persists rate-limit records. Implementations treat a record
// older than their window as absent.
type AttemptStore interface {
	// Load returns the live record for key, discarding an expired one.
	Load(ctx context.Context, key string) (RateLimitRecord, bool, error)
	// Record increments the attempt count, starting a fresh record if needed.
	Record(ctx context.Context, key string) (RateLimitRecord, error)
	// TryRecord increments only when the live count is below limit. The check
	// and the increment are one atomic step.
	TryRecord(ctx context.Context, key string, limit int) (RateLimitRecord, bool, error)
}
