package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusbites/orderline/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeCache is a hand-written stand-in for cache.Cache. getFn is its only
// hook: Get panics if getFn is nil, which surfaces missing test setup
// immediately. Every other method returns fixed values without recording
// anything.
type fakeCache struct {
	getCalls int
	getFn    func(calls int) (string, error)
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.getCalls++
	return f.getFn(f.getCalls)
}
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
	return 0, nil
}
func (f *fakeCache) Close() error { return nil }

func TestResilientCache_Get(t *testing.T) {
	tempErr := errors.New("network flake")

	tests := []struct {
		name        string
		getFn       func(calls int) (string, error)
		wantCalls   int
		wantVal     string
		wantErr     bool
		errContains string
	}{
		{
			name:      "happy path",
			getFn:     func(calls int) (string, error) { return "value1", nil },
			wantCalls: 1,
			wantVal:   "value1",
		},
		{
			name: "retry succeeds on third attempt",
			getFn: func(calls int) (string, error) {
				if calls < 3 {
					return "", tempErr
				}
				return "value2", nil
			},
			wantCalls: 3,
			wantVal:   "value2",
		},
		{
			name:        "max retries exceeded",
			getFn:       func(calls int) (string, error) { return "", tempErr },
			wantCalls:   3,
			wantErr:     true,
			errContains: "max retries exceeded",
		},
		{
			name:      "cache miss is not an error and is not retried",
			getFn:     func(calls int) (string, error) { return "", nil },
			wantCalls: 1,
		},
		{
			name:        "context canceled is not retried",
			getFn:       func(calls int) (string, error) { return "", context.Canceled },
			wantCalls:   1,
			wantErr:     true,
			errContains: "context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCache{getFn: tt.getFn}
			resilient := cache.NewResilientCache(fc)

			val, err := resilient.Get(context.Background(), "some-key")

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantVal, val)
			}
			assert.Equal(t, tt.wantCalls, fc.getCalls)
		})
	}
}
