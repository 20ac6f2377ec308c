package config

// Redis backs the response cache, the auth rate limiter and the classifier
// verdict cache. A nil client disables all three.

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
	// TrustedProxies are the IPs or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
}

func LoadRedisConfig() RedisConfig {
	addr := getEnv("REDIS_ADDR", "")
	host, port := getEnv("REDIS_HOST", ""), getEnv("REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	return RedisConfig{
		Addr:     addr,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getBool("CACHE_ENABLED", true),
		TTL:     getDuration("CACHE_TTL", 30*time.Second),
		Prefix:  getEnv("CACHE_PREFIX", "cache"),
	}
}

func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        getBool("RATE_LIMIT_ENABLED", true),
		Capacity:       getInt("RATE_LIMIT_CAPACITY", 20),
		RefillInterval: getDuration("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            getDuration("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
		TrustedProxies: getList("RATE_LIMIT_TRUSTED_PROXIES", nil),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// NewRedisClient pings the server with a short timeout and returns nil when
// it is unreachable, so callers degrade instead of failing startup.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, cache and rate limiting disabled", "addr", cfg.Addr, "err", err)
		_ = client.Close()
		return nil
	}
	slog.Info("connected to redis", "addr", cfg.Addr)
	return client
}
