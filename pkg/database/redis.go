package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/youthhire/safety-engine/pkg/config"
)

// NewRedisClient creates a Redis client and verifies the connection.
// Returns nil, nil when Redis is not configured, which callers treat as
// single-instance mode.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
