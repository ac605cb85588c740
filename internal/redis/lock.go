package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLeaseHeld = errors.New("writer lease held by another process")
	ErrLeaseLost = errors.New("writer lease lost")
)

// WriterLease marks one process as the only writer of a shared document.
// The key expires unless Keep refreshes it, so a crashed writer frees the
// lease after one TTL.
type WriterLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func LeaseKey(name string) string {
	return fmt.Sprintf("practice:writer:%s", name)
}

// AcquireWriterLease returns ErrLeaseHeld when another process owns the lease.
func AcquireWriterLease(ctx context.Context, client *redis.Client, name string, ttl time.Duration) (*WriterLease, error) {
	l := &WriterLease{
		client: client,
		key:    LeaseKey(name),
		token:  uuid.NewString(),
		ttl:    ttl,
	}

	ok, err := client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire writer lease: %w", err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return l, nil
}

// Keep refreshes the lease every third of its TTL until ctx is done. It
// returns ErrLeaseLost if the key was taken over or expired in between.
func (l *WriterLease) Keep(ctx context.Context) error {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("refresh writer lease: %w", err)
			}
			if n == 0 {
				return ErrLeaseLost
			}
		}
	}
}

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
  return 0
end
`)

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// Release drops the lease if this process still owns it.
func (l *WriterLease) Release(ctx context.Context) error {
	_, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release writer lease: %w", err)
	}
	return nil
}
