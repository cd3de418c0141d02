package redisstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLockKey = "dispatch:cycle:lock"

// Deletes the key only while it still holds our token, so an expired lock
// re-acquired by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCycleLock serializes dispatch cycles across processes with a
// SET NX lease.
type RedisCycleLock struct {
	rdb *redis.Client
	key string
}

func NewRedisCycleLock(rdb *redis.Client, key string) *RedisCycleLock {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisCycleLock{rdb: rdb, key: key}
}

func (l *RedisCycleLock) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release cycle lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}

// LocalLock is the single-process CycleLock used without Redis.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}
	return release, true, nil
}
