package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
)

// Counter is the subset of the Redis client used for fixed windows.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, duration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisLimiter implements a fixed-window counter: INCR, and EXPIRE on the first hit.
type RedisLimiter struct {
	counter Counter
	log     zerolog.Logger
}

// NewRedisLimiter builds a limiter on the shared Redis client.
func NewRedisLimiter(counter Counter, log zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		counter: counter,
		log:     log.With().Str("component", "rate-limiter").Logger(),
	}
}

var _ admission.Limiter = (*RedisLimiter)(nil)

// Allow increments the identity's counter and compares it with the rule's ceiling.
func (l *RedisLimiter) Allow(ctx context.Context, rule admission.Rule, identity string) admission.Decision {
	key := admission.Key(rule, identity)

	count, err := l.counter.Incr(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("rule", rule.Name).Msg("rate limit backend unavailable, allowing request")
		metrics.RecordAdmission(rule.Name, "fail_open")
		return admission.Decision{Allowed: true, FailOpen: true}
	}

	if count == 1 {
		if err := l.counter.Expire(ctx, key, rule.Window); err != nil {
			l.log.Warn().Err(err).Str("rule", rule.Name).Msg("set rate limit window")
		}
	}

	if count <= int64(rule.Limit) {
		metrics.RecordAdmission(rule.Name, "allow")
		return admission.Decision{Allowed: true, Count: count}
	}

	metrics.RecordAdmission(rule.Name, "reject")
	return admission.Decision{
		Allowed:    false,
		Count:      count,
		RetryAfter: l.remaining(ctx, key, rule),
	}
}

// remaining reads the window's TTL. A counter that lost its expiry gets a new window so it
// cannot block an identity forever.
func (l *RedisLimiter) remaining(ctx context.Context, key string, rule admission.Rule) time.Duration {
	ttl, err := l.counter.TTL(ctx, key)
	if err != nil {
		return rule.Window
	}
	if ttl < 0 {
		if err := l.counter.Expire(ctx, key, rule.Window); err != nil {
			l.log.Warn().Err(err).Str("rule", rule.Name).Msg("repair rate limit window")
		}
		return rule.Window
	}
	return ttl
}
