package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS PUBLISHER
// Forwards events to a Redis channel so other processes (a second worker, a
// notification sender) can react to grants made by the CLI.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the channel events are published on.
const DefaultChannel = "tracker:events"

// Envelope is the JSON message published for each event.
type Envelope struct {
	EventType   shared.EventType `json:"event_type"`
	AggregateID string           `json:"aggregate_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     map[string]any   `json:"payload"`
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher implements shared.EventPublisher over Redis Pub/Sub.
type RedisPublisher struct {
	client  redisPublishClient
	channel string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewRedisPublisher creates a RedisPublisher. An empty channel uses
// DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return newRedisPublisher(client, channel)
}

func newRedisPublisher(client redisPublishClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, timeout: 2 * time.Second}
}

// WithBreaker routes every publish through cb. While cb is open events are
// dropped with circuitbreaker.ErrCircuitOpen instead of waiting on Redis.
func (p *RedisPublisher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *RedisPublisher {
	p.breaker = cb
	return p
}

// Publish serialises event and publishes it.
func (p *RedisPublisher) Publish(event shared.Event) error {
	data, err := json.Marshal(Envelope{
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	publish := func(ctx context.Context) error {
		return p.client.Publish(ctx, p.channel, data).Err()
	}
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		return fmt.Errorf("messaging: publish to %s: %w", p.channel, err)
	}
	return nil
}
