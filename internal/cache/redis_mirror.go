package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes cache mutations to a Redis hash plus a pub/sub
// channel, so other processes can observe value changes without holding
// a reference into the driver. Grounded on
// librescoot-bluetooth-service/pkg/redis/client.go's
// WriteAndPublishString/WriteAndPublishInt pipeline pattern, generalized
// from two fixed value types to any cache value rendered via fmt.Sprint.
type RedisMirror struct {
	client  *redis.Client
	ctx     context.Context
	hashKey string
}

// NewRedisMirror connects to addr and returns a Mirror backed by a
// single Redis hash named hashKey, with one pub/sub channel per cache
// key for subscribers.
func NewRedisMirror(ctx context.Context, addr, password string, db int, hashKey string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}
	return &RedisMirror{client: client, ctx: ctx, hashKey: hashKey}, nil
}

func (m *RedisMirror) WriteAndPublish(key string, value any) error {
	rendered := fmt.Sprint(value)
	pipe := m.client.Pipeline()
	pipe.HSet(m.ctx, m.hashKey, key, rendered)
	pipe.Publish(m.ctx, m.hashKey+":"+key, rendered)
	_, err := pipe.Exec(m.ctx)
	return err
}

func (m *RedisMirror) Delete(key string) error {
	pipe := m.client.Pipeline()
	pipe.HDel(m.ctx, m.hashKey, key)
	pipe.Publish(m.ctx, m.hashKey+":"+key, "")
	_, err := pipe.Exec(m.ctx)
	return err
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
