package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Sosajunior/crm-sub000/internal/domain/providers"
	redisclient "github.com/Sosajunior/crm-sub000/internal/infrastructure/clients/redis"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultPollInterval = 25 * time.Millisecond

// RedisLocker implements LockProvider with SET NX PX leases, so every
// engine instance sharing the Redis server sees the same locks
type RedisLocker struct {
	client       *redisclient.Client
	prefix       string
	pollInterval time.Duration
}

// NewRedisLocker creates a locker storing leases under prefix
func NewRedisLocker(client *redisclient.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client:       client,
		prefix:       prefix,
		pollInterval: defaultPollInterval,
	}
}

// Acquire polls until the lease is taken, wait elapses, or ctx is done
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (providers.Lock, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.Client().SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return &redisLock{client: l.client, key: fullKey, token: token}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", providers.ErrLockNotAcquired, key)
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

type redisLock struct {
	client *redisclient.Client
	key    string
	token  string
}

// Release deletes the lease if it is still ours
func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client.Client(), []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
