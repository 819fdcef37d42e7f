// ABOUTME: Redis-backed ownership registry shared by all instances
// ABOUTME: Plain SET/GET/DEL on canonical conversation names, no TTL, no CAS

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry implements Registry on a shared Redis database. All
// instances point at the same database, making it the single source of
// truth for conversation ownership.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry wraps an existing Redis client. The caller owns the
// client's lifecycle.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// Claim sets conversation -> serverID, overwriting any previous owner.
func (r *RedisRegistry) Claim(ctx context.Context, conversation, serverID string) error {
	if err := r.client.Set(ctx, conversation, serverID, 0).Err(); err != nil {
		return fmt.Errorf("claiming %s: %w", conversation, err)
	}
	return nil
}

// Owner returns the owning ServerID, or ok=false when no entry exists.
func (r *RedisRegistry) Owner(ctx context.Context, conversation string) (string, bool, error) {
	val, err := r.client.Get(ctx, conversation).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading owner of %s: %w", conversation, err)
	}
	return val, true, nil
}

// Release deletes the ownership entries. DEL ignores missing keys, so
// releasing an already-released conversation is not an error.
func (r *RedisRegistry) Release(ctx context.Context, conversations ...string) error {
	if len(conversations) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, conversations...).Err(); err != nil {
		return fmt.Errorf("releasing %d conversations: %w", len(conversations), err)
	}
	return nil
}
