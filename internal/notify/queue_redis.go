package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list the external sender consumes from.
const DefaultQueueKey = "stilltrue:notify:deliveries"

// RedisQueue pushes deliveries onto a Redis list. The external sender pops
// with BRPOP, giving at-least-once handoff across process restarts.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Dispatch(ctx context.Context, deliveries []Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	payloads := make([]any, len(deliveries))
	for i, d := range deliveries {
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal delivery: %w", err)
		}
		payloads[i] = raw
	}
	if err := q.client.LPush(ctx, q.key, payloads...).Err(); err != nil {
		return fmt.Errorf("enqueue deliveries: %w", err)
	}
	return nil
}

// Len reports the number of queued deliveries. Used by health checks and
// tests.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
