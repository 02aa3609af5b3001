package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "emotion:state"

// RedisStore persists records in Redis, one key per session. Records never
// expire; sessions are only removed by an explicit reset.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing Redis client. An empty prefix selects
// "emotion:state".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(sessionKey string) string {
	return fmt.Sprintf("%s:%s", r.prefix, sessionKey)
}

// Load fetches and decodes the record for sessionKey.
func (r *RedisStore) Load(ctx context.Context, sessionKey string) (Record, error) {
	data, err := r.client.Get(ctx, r.key(sessionKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to get emotion state: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal emotion state: %w", err)
	}
	return rec, nil
}

// Save encodes and writes the record in a single SET, which Redis applies
// atomically.
func (r *RedisStore) Save(ctx context.Context, sessionKey string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal emotion state: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionKey), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set emotion state: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
