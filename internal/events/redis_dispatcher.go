package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes events onto a work queue consumed by the
// notification worker and mirrors them on a pub/sub channel for live
// listeners.
type RedisPublisher struct {
	client   *redis.Client
	queueKey string
	channel  string
}

// NewRedisPublisher constructs a publisher. An empty channel disables the
// pub/sub mirror.
func NewRedisPublisher(client *redis.Client, queueKey, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, queueKey: queueKey, channel: channel}
}

// Publish enqueues the event in one round trip.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.LPush(ctx, p.queueKey, data)
	if p.channel != "" {
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return nil
}

// Decode parses a queued event.
func Decode(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
