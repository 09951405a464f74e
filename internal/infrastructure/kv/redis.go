package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shopmetrics/internal/ports"
)

// defaultOpTimeout bounds every store call so a stalled Redis node
// cannot hang a request handler.
const defaultOpTimeout = 3 * time.Second

// RedisKV implements ports.KV on top of a Redis client.
type RedisKV struct {
	client    *redis.Client
	opTimeout time.Duration
	logger    zerolog.Logger
}

// NewRedisKV connects to Redis and verifies the connection with a ping.
func NewRedisKV(addr, password string, logger zerolog.Logger) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisKV{
		client:    client,
		opTimeout: defaultOpTimeout,
		logger:    logger,
	}, nil
}

// NewRedisKVFromClient wraps an existing client, used by tests and by
// callers that manage the connection themselves.
func NewRedisKVFromClient(client *redis.Client, logger zerolog.Logger) *RedisKV {
	return &RedisKV{
		client:    client,
		opTimeout: defaultOpTimeout,
		logger:    logger,
	}
}

func (r *RedisKV) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	first, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return first, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
