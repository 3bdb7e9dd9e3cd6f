package database

import (
	"context"
	"fmt"
	"time"

	"github.com/crewline/crewline-backend/internal/config"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis builds the Redis client used for per-user rate limiting. A failed
// ping is logged but not fatal: rate limiting degrades to allow-all.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Redis, rate limiting will be disabled")
	} else {
		logger.Info().Msg("Connected to Redis successfully")
	}
	return client
}

// CheckRateLimit increments the caller's send counter and reports whether the
// caller is still within limit for the window.
func CheckRateLimit(ctx context.Context, client *redis.Client, userID string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("rate_limit:send:%s", userID)
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		client.Expire(ctx, key, window)
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}
