// Package ratelimit implements the sliding-window login throttle
// (spec.md §4.D): W=60s, M=3 attempts per principal per window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusbites/orderline/pkg/cache"
)

// ErrDenied is returned when the caller has exceeded M attempts within
// the current window. RetryAfter is always W seconds (spec.md §4.D).
var ErrDenied = errors.New("rate limit exceeded")

// Limiter implements check_and_record against a sliding-window sorted set
// kept in the shared cache.
type Limiter struct {
	cache       cache.Cache
	window      time.Duration
	maxAttempts int64
}

// NewLimiter creates a new sliding-window Limiter.
func NewLimiter(c cache.Cache, window time.Duration, maxAttempts int64) *Limiter {
	return &Limiter{cache: c, window: window, maxAttempts: maxAttempts}
}

// CheckAndRecord runs the algorithm from spec.md §4.D: prune stale
// attempts, read the count *before* inserting this one, record the hit,
// and refresh the key's TTL. The (M+1)th request within the window is
// denied; the Mth is allowed.
func (l *Limiter) CheckAndRecord(ctx context.Context, key string) error {
	now := time.Now()
	windowStart := now.Add(-l.window)

	count, err := l.cache.RecordSlidingWindowHit(ctx, rateLimitKey(key), now, windowStart, l.window+time.Second)
	if err != nil {
		return fmt.Errorf("failed to check rate limit for '%s': %w", key, err)
	}

	if count >= l.maxAttempts {
		return ErrDenied
	}
	return nil
}

// RetryAfter is always the configured window, per spec.md §4.D.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:login:%s", key)
}
