package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coursehub/course-tracker/internal/domain/shared"
)

// DefaultLockTTL bounds how long a crashed holder can block other runs.
const DefaultLockTTL = 30 * time.Second

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lock expired cannot release someone else's.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// lockClient is the subset of *redis.Client the lock needs.
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// GrantLock is a per-user mutual exclusion lock for grant runs across
// processes, built on SET NX PX.
type GrantLock struct {
	client lockClient
	ttl    time.Duration
	token  func() string
}

// NewGrantLock creates a GrantLock. A non-positive ttl uses DefaultLockTTL.
func NewGrantLock(client *redis.Client, ttl time.Duration) *GrantLock {
	return newGrantLock(client, ttl)
}

func newGrantLock(client lockClient, ttl time.Duration) *GrantLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &GrantLock{client: client, ttl: ttl, token: uuid.NewString}
}

// GrantLockKey returns the lock key of userID.
func GrantLockKey(userID string) string {
	return LockKey("grant:" + userID)
}

// Acquire takes the lock of userID. It returns shared.ErrLockNotAcquired
// when another holder has it. The returned release func is safe to call
// after the lock expired.
func (l *GrantLock) Acquire(ctx context.Context, userID string) (func(context.Context) error, error) {
	key := GrantLockKey(userID)
	token := l.token()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, shared.WrapError("redis", "AcquireGrantLock", shared.ErrServiceUnavailable, "lock request failed", err)
	}
	if !ok {
		return nil, shared.ErrLockNotAcquired
	}

	return func(ctx context.Context) error {
		err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis: release %s: %w", key, err)
		}
		return nil
	}, nil
}
