package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docpilot/portal/internal/model"
)

var _ model.SessionStore = (*SessionStore)(nil)

// SessionStore keeps recovery sessions as JSON strings with a TTL.
type SessionStore struct {
	rdb    *redis.Client
	prefix string
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(rdb *redis.Client, prefix string) *SessionStore {
	return &SessionStore{rdb: rdb, prefix: prefixed(prefix) + "recovery-session:"}
}

func (s *SessionStore) key(k string) string { return s.prefix + k }

// Save stores session under key for ttl.
func (s *SessionStore) Save(ctx context.Context, key string, session model.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the session under key or model.ErrNotFound.
func (s *SessionStore) Load(ctx context.Context, key string) (model.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, model.ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}

// Delete removes the session under key.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
