package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue yields raw queued messages. Pop returns (nil, nil) when nothing
// arrived within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// RedisQueue pops from the right end of a Redis list filled with LPUSH.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue constructs a queue over key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Pop blocks on BRPOP for at most timeout.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// result[0] is the key, result[1] the value
	return []byte(result[1]), nil
}
