package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"vehicle-auction/utils"
)

// NewRedisClient connects to Redis. It returns nil when the server cannot be
// reached so callers can run without rate limiting.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.Warn("Redis unavailable, rate limiting disabled", map[string]any{"addr": cfg.Addr, "error": err.Error()})
		_ = client.Close()
		return nil
	}
	return client
}
