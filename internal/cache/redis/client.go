// Package redis holds the Redis-backed stores used when the portal runs as
// more than one instance.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "docpilot:"

// NewClient creates a client from a URL such as redis://:pass@host:6379/0
// and pings it so a bad address fails at startup.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func prefixed(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
