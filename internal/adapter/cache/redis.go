// Package cache stores the dashboard snapshot between recomputations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// SnapshotKey is the redis key holding the encoded dashboard snapshot
const SnapshotKey = "finflow:dashboard:snapshot"

// RedisOptions configures the redis connection
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient creates a redis client and checks the connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisSnapshotCache implements domain.SnapshotCache on redis
type RedisSnapshotCache struct {
	client redis.Cmdable
	key    string
}

// NewRedisSnapshotCache creates a snapshot cache on client
func NewRedisSnapshotCache(client redis.Cmdable) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, key: SnapshotKey}
}

// Get returns the cached snapshot; a missing key is a miss, not an error
func (c *RedisSnapshotCache) Get(ctx context.Context) (*domain.DashboardSnapshot, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dashboard snapshot: %w", err)
	}

	var snapshot domain.DashboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to decode dashboard snapshot: %w", err)
	}

	return &snapshot, true, nil
}

// Set stores the snapshot for ttl
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *domain.DashboardSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard snapshot: %w", err)
	}

	return nil
}

// Invalidate drops the cached snapshot
func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard snapshot: %w", err)
	}
	return nil
}
