// Package presence tracks the online roster. The redis roster is shared
// between instances; the memory roster backs single-process dev runs.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entries expire after TTL without a Refresh, so users of a crashed instance
// age out of the roster.
const (
	keyPrefix = "presence:online:"
	TTL       = 90 * time.Second
)

type RedisRoster struct {
	cli *redis.Client
}

// NewRedisRosterFromClient wraps an already connected client. The caller
// keeps ownership of the client.
func NewRedisRosterFromClient(cli *redis.Client) *RedisRoster {
	return &RedisRoster{cli: cli}
}

func (r *RedisRoster) MarkOnline(ctx context.Context, userID string) error {
	return r.cli.Set(ctx, keyPrefix+userID, "1", TTL).Err()
}

func (r *RedisRoster) MarkOffline(ctx context.Context, userID string) error {
	return r.cli.Del(ctx, keyPrefix+userID).Err()
}

func (r *RedisRoster) Refresh(ctx context.Context, userID string) error {
	return r.cli.Expire(ctx, keyPrefix+userID, TTL).Err()
}

// Online scans the roster keys. SCAN, not KEYS, so a large roster does not
// stall redis.
func (r *RedisRoster) Online(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := r.cli.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("presence scan: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
