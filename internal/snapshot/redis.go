package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the document under a single string key.
type RedisBackend struct {
	rdb *redis.Client
	key string
}

func NewRedisBackend(rdb *redis.Client, name string) *RedisBackend {
	return &RedisBackend{rdb: rdb, key: RedisKey(name)}
}

// RedisKey returns the key a named document is stored under.
func RedisKey(name string) string {
	return "practice:snapshot:" + name
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.rdb.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

// Save writes without expiry; the document lives until replaced.
func (b *RedisBackend) Save(ctx context.Context, data []byte) error {
	if err := b.rdb.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error { return b.rdb.Close() }

// Client exposes the connection for callers that coordinate writers.
func (b *RedisBackend) Client() *redis.Client { return b.rdb }
