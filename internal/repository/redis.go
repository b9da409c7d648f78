package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend stores the slot as a plain Redis string.
type RedisBackend struct {
	client *redis.Client
	key    string
}

var _ Backend = (*RedisBackend)(nil)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	return &RedisBackend{client: client, key: key}, nil
}

func (r *RedisBackend) Get(ctx context.Context) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}
	return value, nil
}

// Set writes without expiry; message lifetime is enforced by pruning, not by
// the key TTL.
func (r *RedisBackend) Set(ctx context.Context, value []byte) error {
	if err := r.client.Set(ctx, r.key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
