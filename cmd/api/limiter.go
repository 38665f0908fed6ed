package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/auirah-api/internal/config"
	"github.com/auirah-api/internal/infrastructure/ratelimit"
)

// newLimiter returns the Redis limiter when REDIS_URL is set, the in-process one otherwise.
// The returned func releases whatever the limiter holds.
func newLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return ratelimit.NewRedis(client), func() { _ = client.Close() }, nil
	}

	log.Warn("REDIS_URL not set; OTP request limits are per process")
	mem := ratelimit.NewMemory(time.Now)
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mem.Sweep(cfg.OTP.RequestWindow)
			case <-stop:
				return
			}
		}
	}()
	return mem, func() { close(stop) }, nil
}
