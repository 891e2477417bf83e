package session

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jrchat:state:"

// RedisSlot stores the blob under jrchat:state:<key>.
type RedisSlot struct {
	client *redis.Client
	key    string
}

// NewRedisSlot connects to addr and verifies the connection.
func NewRedisSlot(addr, key string) (*RedisSlot, error) {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisSlot{client: client, key: redisKeyPrefix + key}, nil
}

func (r *RedisSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisSlot) Save(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// Close closes the underlying client.
func (r *RedisSlot) Close() error {
	return r.client.Close()
}
