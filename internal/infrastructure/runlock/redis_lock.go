// Package runlock serializes import runs. The Redis implementation covers
// distributed deployments; the in-memory one covers single-instance setups
// and tests.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logistics/backend/internal/infrastructure/config"
)

const lockKey = "import:run_lock"

// RedisRunLock implements importapp.RunLock on Redis. The TTL guards against
// a crashed instance holding the lock forever.
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunLock creates a run lock backed by a new Redis connection
func NewRedisRunLock(cfg config.RedisConfig, ttl time.Duration) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunLockWithClient(client, ttl), nil
}

// NewRedisRunLockWithClient creates a run lock on an existing Redis client
func NewRedisRunLockWithClient(client *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisRunLock{client: client, ttl: ttl}
}

// Acquire takes the lock atomically via SETNX. It returns false without an
// error when another run already holds it.
func (l *RedisRunLock) Acquire(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, lockKey, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return acquired, nil
}

// Release gives the lock back
func (l *RedisRunLock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}
