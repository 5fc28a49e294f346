package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

// Limiter implements fixed-window counting over a shared Redis store. The
// first hit in a window sets a TTL equal to the window; once the key
// expires the window is fresh. If Redis is unreachable the limiter fails
// open: transient infrastructure trouble must not lock out legitimate
// traffic.
type Limiter struct {
	redis  redis.UniversalClient
	logger *zap.Logger
}

func New(client redis.UniversalClient, logger *zap.Logger) *Limiter {
	return &Limiter{redis: client, logger: logger}
}

// Check atomically increments the counter for key and rejects once the
// window budget is exceeded. The rejection carries retry-after seconds
// derived from the key's remaining TTL.
func (l *Limiter) Check(ctx context.Context, key string, window time.Duration, maxRequests int) error {
	count, err := l.incrementWithTTL(ctx, key, window)
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, failing open",
			zap.String("key", key), zap.Error(err))
		return nil
	}

	if count <= int64(maxRequests) {
		return nil
	}

	retryAfter := int(window / time.Second)
	if ttl, err := l.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(ttl / time.Second)
	}
	if retryAfter < 1 {
		retryAfter = 1
	}
	return autherrors.RateLimited(retryAfter)
}

// Peek rejects without incrementing when the counter already sits at or
// above the budget. Used by the login limiter, which only counts failures.
func (l *Limiter) Peek(ctx context.Context, key string, window time.Duration, maxRequests int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		l.logger.Warn("rate limiter store unavailable, failing open",
			zap.String("key", key), zap.Error(err))
		return nil
	}

	if count < int64(maxRequests) {
		return nil
	}

	retryAfter := int(window / time.Second)
	if ttl, err := l.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(ttl / time.Second)
	}
	if retryAfter < 1 {
		retryAfter = 1
	}
	return autherrors.RateLimited(retryAfter)
}

// Increment records one hit against key without enforcing the budget.
func (l *Limiter) Increment(ctx context.Context, key string, window time.Duration) {
	if _, err := l.incrementWithTTL(ctx, key, window); err != nil {
		l.logger.Warn("rate limiter increment failed",
			zap.String("key", key), zap.Error(err))
	}
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		l.logger.Warn("rate limiter reset failed",
			zap.String("key", key), zap.Error(err))
	}
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	// INCR then EXPIRE pipelined; the EXPIRE applies only on the first hit
	// of a window so a racing burst cannot push the reset forward.
	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	count := incr.Val()
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
