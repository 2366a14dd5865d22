package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/pkg/circuitbreaker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func grantedEvent() shared.Event {
	def, _ := achievement.Lookup(achievement.FirstLab)
	return achievement.NewGrantedEvent("u1", def, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestInMemoryEventBus_SyncDispatch(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger()})

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventAchievementGranted, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return errors.New("ignored")
	}))

	require.NoError(t, bus.Publish(grantedEvent()))
	require.NoError(t, bus.Publish(shared.NewRecordAddedEvent(shared.EventLabAdded, "u1", "l1", "lab", time.Now())))

	assert.Equal(t, []shared.EventType{shared.EventAchievementGranted}, typed)
	assert.Equal(t, []shared.EventType{shared.EventAchievementGranted, shared.EventLabAdded}, all)
}

func TestInMemoryEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger()})
	called := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { called = true; return nil }))

	assert.NotPanics(t, func() { _ = bus.Publish(grantedEvent()) })
	assert.True(t, called)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2, Logger: quietLogger()})
	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(grantedEvent()))
	}
	require.NoError(t, bus.Close())

	assert.LessOrEqual(t, handled.Load(), int32(5))
	assert.ErrorIs(t, bus.Publish(grantedEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventLabAdded, nil))
}

type recordingPublisher struct {
	mu  sync.Mutex
	n   int
	err error
}

func (p *recordingPublisher) Publish(shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return p.err
}

func TestFanout_TriesEveryPublisher(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}

	err := Fanout{failing, nil, ok}.Publish(grantedEvent())

	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, failing.n)
	assert.Equal(t, 1, ok.n)
}

type fakePublishClient struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublishClient) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher_PublishesEnvelope(t *testing.T) {
	client := &fakePublishClient{}
	pub := newRedisPublisher(client, "")

	require.NoError(t, pub.Publish(grantedEvent()))

	assert.Equal(t, DefaultChannel, client.channel)
	var env Envelope
	require.NoError(t, json.Unmarshal(client.message, &env))
	assert.Equal(t, shared.EventAchievementGranted, env.EventType)
	assert.Equal(t, "u1", env.AggregateID)
	assert.Equal(t, string(achievement.FirstLab), env.Payload["achievement_id"])
}

func TestRedisPublisher_Error(t *testing.T) {
	client := &fakePublishClient{err: errors.New("no route")}

	err := newRedisPublisher(client, "custom").Publish(grantedEvent())

	assert.ErrorIs(t, err, client.err)
	assert.Equal(t, "custom", client.channel)
}

func TestRedisPublisher_BreakerStopsCalls(t *testing.T) {
	client := &fakePublishClient{err: errors.New("no route")}
	pub := newRedisPublisher(client, "").WithBreaker(circuitbreaker.New("redis", circuitbreaker.WithFailureThreshold(1)))

	assert.ErrorIs(t, pub.Publish(grantedEvent()), client.err)

	client.channel = ""
	err := pub.Publish(grantedEvent())
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Empty(t, client.channel)
}
