package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
)

const backendRedis = "redis"

// RedisCache is the shared Redis client used for history caching and rate limiting.
type RedisCache struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(redisURL string, opTimeout time.Duration) (*RedisCache, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("Redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("Ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Strs("addrs", opts.Addrs).Msg("Successfully connected to Redis cache")
	return NewRedisCacheWithClient(client, opTimeout), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client redis.UniversalClient, opTimeout time.Duration) *RedisCache {
	return &RedisCache{client: client, opTimeout: opTimeout}
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	parts := strings.Split(raw, ",")
	opts := &redis.UniversalOptions{}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}

		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = parsed.DialTimeout
		}
		if opts.PoolSize == 0 {
			opts.PoolSize = parsed.PoolSize
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}

	return opts, nil
}

func (r *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

// Get returns the cached value, or conversation.ErrCacheMiss when the key is absent.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheOperation(backendRedis, "get", "miss")
			return nil, conversation.ErrCacheMiss
		}
		metrics.RecordCacheOperation(backendRedis, "get", "error")
		return nil, fmt.Errorf("failed to get value from cache: %w", err)
	}

	metrics.RecordCacheOperation(backendRedis, "get", "hit")
	return val, nil
}

// Set stores value under key with the given expiry.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		metrics.RecordCacheOperation(backendRedis, "set", "error")
		return err
	}
	metrics.RecordCacheOperation(backendRedis, "set", "ok")
	return nil
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		metrics.RecordCacheOperation(backendRedis, "delete", "error")
		return err
	}
	metrics.RecordCacheOperation(backendRedis, "delete", "ok")
	return nil
}

// Incr atomically increments key.
func (r *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Incr(ctx, key).Result()
}

// Expire sets a key's time to live.
func (r *RedisCache) Expire(ctx context.Context, key string, duration time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Expire(ctx, key, duration).Err()
}

// TTL returns a key's remaining time to live.
func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.TTL(ctx, key).Result()
}

// HealthCheck pings Redis.
func (r *RedisCache) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
