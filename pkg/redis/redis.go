package redis

import (
	"context"
	"fmt"

	"rideshare/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewClient parses REDIS_URL and pings the server once.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
