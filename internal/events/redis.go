package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtlprog/taskpulse/internal/domain"
)

// DefaultChannel is the pub/sub channel events are published to.
const DefaultChannel = "taskpulse.events"

// Envelope is the JSON message published for every event.
type Envelope struct {
	Name        string          `json:"name"`
	AggregateID string          `json:"aggregate_id"`
	OccurredOn  time.Time       `json:"occurred_on"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an event for publishing.
func NewEnvelope(event domain.Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event.EventName(), err)
	}
	return Envelope{
		Name:        event.EventName(),
		AggregateID: event.AggregateID(),
		OccurredOn:  event.OccurredOn().UTC(),
		Payload:     payload,
	}, nil
}

// RedisPublisher forwards events to a Redis pub/sub channel.
// Delivery is fire-and-forget: nothing is stored and nobody is waited for.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

// NewRedisPublisher creates a publisher. An empty channel uses DefaultChannel.
func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Handle publishes the event. It satisfies Handler.
func (p *RedisPublisher) Handle(ctx context.Context, event domain.Event) error {
	env, err := NewEnvelope(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventName(), p.channel, err)
	}
	return nil
}

// Subscribe registers the publisher for every task event.
func (p *RedisPublisher) Subscribe(d *Dispatcher) {
	for _, name := range domain.AllEventNames() {
		d.Register(name, p)
	}
}
