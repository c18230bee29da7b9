// README: Per-requester locks that serialize concurrent computations for one user.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carpool/internal/types"
)

// Locker serializes computations for the same requester. Lock blocks until
// the lock is held or ctx ends; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, userID types.ID) (unlock func(), err error)
}

const (
	lockKeyPrefix = "matching:lock:%s"
	lockRetry     = 50 * time.Millisecond
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX lock shared by every API instance.
type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{redis: client, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, userID types.ID) (func(), error) {
	key := fmt.Sprintf(lockKeyPrefix, string(userID))
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release must run even if the request context was cancelled.
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.redis, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, lockWaitErr(ctx)
		case <-ticker.C:
		}
	}
}

// LocalLocker serializes within one process. Used when Redis is not configured.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[types.ID]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[types.ID]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, userID types.ID) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[userID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, lockWaitErr(ctx)
	}
}

func lockWaitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrBusy
	}
	return ctx.Err()
}
