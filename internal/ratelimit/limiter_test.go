package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache records hits per key and returns the count observed before
// this hit, mirroring RecordSlidingWindowHit's real contract without a
// live Redis instance.
type fakeCache struct {
	counts map[string]int64
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (f *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (f *fakeCache) Del(ctx context.Context, keys ...string) error { return nil }
func (f *fakeCache) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	return nil, nil
}
func (f *fakeCache) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	return delta, nil
}
func (f *fakeCache) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}
func (f *fakeCache) Subscribe(ctx context.Context, channel string) *redis.PubSub { return nil }
func (f *fakeCache) RecordSlidingWindowHit(ctx context.Context, key string, now, windowStart time.Time, window time.Duration) (int64, error) {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	before := f.counts[key]
	f.counts[key]++
	return before, nil
}
func (f *fakeCache) Close() error { return nil }

func TestLimiter_AllowsUpToMaxThenDenies(t *testing.T) {
	c := &fakeCache{}
	limiter := NewLimiter(c, 60*time.Second, 3)

	for i := 0; i < 3; i++ {
		err := limiter.CheckAndRecord(context.Background(), "student-1")
		require.NoError(t, err, "attempt %d should be allowed", i+1)
	}

	err := limiter.CheckAndRecord(context.Background(), "student-1")
	require.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, 60*time.Second, limiter.RetryAfter())
}

func TestLimiter_TracksKeysIndependently(t *testing.T) {
	c := &fakeCache{}
	limiter := NewLimiter(c, 60*time.Second, 1)

	require.NoError(t, limiter.CheckAndRecord(context.Background(), "student-a"))
	require.NoError(t, limiter.CheckAndRecord(context.Background(), "student-b"))

	require.ErrorIs(t, limiter.CheckAndRecord(context.Background(), "student-a"), ErrDenied)
}
