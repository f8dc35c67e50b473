// Package rate implements the Redis-backed fixed-window counters behind
// login throttling. Windows are INCR plus a conditional EXPIRE on the first
// hit; a counter above the budget means the identifier is throttled until
// the window lapses.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited means the attempt budget for the window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures so callers can fail open
	// or closed by policy.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config tunes the limiter. MaxAttempts bounds failures per identifier and
// per IP within one Window.
type Config struct {
	KeyPrefix   string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts failed attempts in Redis. Safe for concurrent use.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter over the given client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate"
	}
	return &Limiter{redis: client, config: cfg}
}

// Allow reports whether the identifier (and, when set, the IP) still has
// budget. It reads without incrementing so successful attempts cost nothing.
func (l *Limiter) Allow(ctx context.Context, identifier, ip string) error {
	if err := l.check(ctx, l.idKey(identifier)); err != nil {
		return err
	}
	if ip != "" {
		return l.check(ctx, l.ipKey(ip))
	}
	return nil
}

// RecordFailure counts one failed attempt against the identifier and IP.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	if _, err := l.bump(ctx, l.idKey(identifier)); err != nil {
		return err
	}
	if ip != "" {
		if _, err := l.bump(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the counters after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	keys := []string{l.idKey(identifier)}
	if ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the live counter for an identifier. Missing keys read as
// zero so the probe cannot reveal account existence.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.idKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		count = 0
	}
	return int(count), nil
}

func (l *Limiter) check(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) bump(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func (l *Limiter) idKey(identifier string) string {
	return l.config.KeyPrefix + ":id:" + identifier
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.KeyPrefix + ":ip:" + ip
}
