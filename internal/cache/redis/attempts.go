package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docpilot/portal/internal/model"
)

var _ model.AttemptStore = (*AttemptStore)(nil)

// Records are hashes with fields count and last (unix millis). The key TTL
// is reset to the window on every attempt, so Redis expiry and the window
// check agree.
var (
	recordScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], 'count', 1)
redis.call('HSET', KEYS[1], 'last', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, n, tonumber(ARGV[1])}
`)

	tryRecordScript = redis.NewScript(`
local n = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if n >= tonumber(ARGV[3]) then
  local last = tonumber(redis.call('HGET', KEYS[1], 'last') or '0')
  return {0, n, last}
end
n = redis.call('HINCRBY', KEYS[1], 'count', 1)
redis.call('HSET', KEYS[1], 'last', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, n, tonumber(ARGV[1])}
`)
)

// AttemptStore is a model.AttemptStore shared by every instance that points
// at the same Redis.
type AttemptStore struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
	now    func() time.Time
}

// NewAttemptStore creates an AttemptStore whose records expire after window.
func NewAttemptStore(rdb *redis.Client, prefix string, window time.Duration) *AttemptStore {
	return &AttemptStore{
		rdb:    rdb,
		prefix: prefixed(prefix) + "reset-attempts:",
		window: window,
		now:    time.Now,
	}
}

func (s *AttemptStore) key(sessionKey string) string { return s.prefix + sessionKey }

// Load returns the live record for sessionKey.
func (s *AttemptStore) Load(ctx context.Context, sessionKey string) (model.RateLimitRecord, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(sessionKey)).Result()
	if err != nil {
		return model.RateLimitRecord{}, false, fmt.Errorf("failed to load attempts: %w", err)
	}
	if len(m) == 0 {
		return model.RateLimitRecord{}, false, nil
	}

	count, err := strconv.Atoi(m["count"])
	if err != nil {
		return model.RateLimitRecord{}, false, fmt.Errorf("failed to parse attempt count: %w", err)
	}
	lastMillis, err := strconv.ParseInt(m["last"], 10, 64)
	if err != nil {
		return model.RateLimitRecord{}, false, fmt.Errorf("failed to parse last attempt: %w", err)
	}

	rec := model.RateLimitRecord{
		SessionKey:   sessionKey,
		AttemptCount: count,
		LastAttempt:  time.UnixMilli(lastMillis).UTC(),
	}
	if s.now().Sub(rec.LastAttempt) > s.window {
		return model.RateLimitRecord{}, false, nil
	}
	return rec, true, nil
}

// Record increments the attempt count for sessionKey.
func (s *AttemptStore) Record(ctx context.Context, sessionKey string) (model.RateLimitRecord, error) {
	rec, _, err := s.run(ctx, recordScript, sessionKey)
	return rec, err
}

// TryRecord increments the attempt count only while it is below limit.
func (s *AttemptStore) TryRecord(ctx context.Context, sessionKey string, limit int) (model.RateLimitRecord, bool, error) {
	return s.run(ctx, tryRecordScript, sessionKey, limit)
}

func (s *AttemptStore) run(ctx context.Context, script *redis.Script, sessionKey string, extra ...any) (model.RateLimitRecord, bool, error) {
	args := append([]any{s.now().UnixMilli(), s.window.Milliseconds()}, extra...)

	res, err := script.Run(ctx, s.rdb, []string{s.key(sessionKey)}, args...).Int64Slice()
	if err != nil {
		return model.RateLimitRecord{}, false, fmt.Errorf("failed to record attempt: %w", err)
	}
	if len(res) != 3 {
		return model.RateLimitRecord{}, false, fmt.Errorf("unexpected script reply of length %d", len(res))
	}

	return model.RateLimitRecord{
		SessionKey:   sessionKey,
		AttemptCount: int(res[1]),
		LastAttempt:  time.UnixMilli(res[2]).UTC(),
	}, res[0] == 1, nil
}
