package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/domain/shared"
)

// fakeLockClient emulates SET NX and the compare-and-delete script.
type fakeLockClient struct {
	mu     sync.Mutex
	keys   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeLockClient() *fakeLockClient {
	return &fakeLockClient{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLockClient) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, held := f.keys[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLockClient) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestGrantLock_ExclusivePerUser(t *testing.T) {
	client := newFakeLockClient()
	lock := newGrantLock(client, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, time.Second, client.ttls[GrantLockKey("u1")])

	_, err = lock.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	other, err := lock.Acquire(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.NoError(t, again(ctx))
}

func TestGrantLock_ReleaseAfterExpiryKeepsNewHolder(t *testing.T) {
	client := newFakeLockClient()
	lock := newGrantLock(client, 0)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultLockTTL, client.ttls[GrantLockKey("u1")])

	// simulate expiry and a new holder
	client.mu.Lock()
	client.keys[GrantLockKey("u1")] = "someone-else"
	client.mu.Unlock()

	require.NoError(t, stale(ctx))
	assert.Equal(t, "someone-else", client.keys[GrantLockKey("u1")])
}

func TestGrantLock_ServerError(t *testing.T) {
	client := newFakeLockClient()
	client.setErr = errors.New("connection refused")
	lock := newGrantLock(client, time.Second)

	_, err := lock.Acquire(context.Background(), "u1")

	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.NotErrorIs(t, err, shared.ErrLockNotAcquired)
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr())
	assert.Equal(t, "tracker:lock:grant:u1", GrantLockKey("u1"))
}
