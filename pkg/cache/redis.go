package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusbites/orderline/pkg/config"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache defines a focused interface for caching operations. Every decorator
// in this package (instrumented, resilient) implements the same interface.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value in the cache with a given expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// SetNX sets a value only if the key does not already exist, returning
	// whether this call won the race.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	// Del deletes one or more keys from the cache.
	Del(ctx context.Context, keys ...string) error

	// MGet retrieves multiple values from the cache.
	MGet(ctx context.Context, keys ...string) ([]interface{}, error)

	// Incr atomically increments a counter key by delta, creating it at 0 first.
	Incr(ctx context.Context, key string, delta int64) (int64, error)

	// Publish broadcasts a message to a pub/sub channel.
	Publish(ctx context.Context, channel string, message interface{}) error

	// Subscribe opens a pub/sub subscription to the given channel. The
	// caller owns the returned subscription and must Close it.
	Subscribe(ctx context.Context, channel string) *redis.PubSub

	// RecordSlidingWindowHit appends now to the key's sorted set, evicts
	// entries older than windowStart, sets the key's TTL to window and
	// returns the count of entries within the window *before* this hit was
	// added (so callers can compare against a limit pre-insertion).
	RecordSlidingWindowHit(ctx context.Context, key string, now, windowStart time.Time, window time.Duration) (int64, error)

	// Close closes the Redis client.
	Close() error
}

type redisCache struct {
	client *redis.Client
	prefix string
	group  singleflight.Group
}

// NewRedisClient initializes a new Redis client.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 100
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisCache creates a new Redis cache wrapper using an existing client.
func NewRedisCache(client *redis.Client, keyPrefix string) Cache {
	return &redisCache{
		client: client,
		prefix: keyPrefix,
	}
}

// buildKey uses strings.Builder for minimized allocation key generation.
func (r *redisCache) buildKey(key string) string {
	if r.prefix == "" {
		return key
	}
	var b strings.Builder
	b.Grow(len(r.prefix) + 1 + len(key))
	b.WriteString(r.prefix)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// buildKeys constructs multiple keys efficiently.
func (r *redisCache) buildKeys(keys []string) []string {
	if r.prefix == "" {
		return keys
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.buildKey(k)
	}
	return prefixed
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	builtKey := r.buildKey(key)

	// Use singleflight to prevent cache stampede
	val, err, _ := r.group.Do(builtKey, func() (interface{}, error) {
		res, err := r.client.Get(ctx, builtKey).Result()
		if err == redis.Nil {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to get key '%s' from Redis: %w", key, err)
		}
		return res, nil
	})

	if err != nil {
		return "", err
	}
	return val.(string), nil
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, r.buildKey(key), value, expiration).Err()
}

func (r *redisCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.buildKey(key), value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key '%s' in Redis: %w", key, err)
	}
	return ok, nil
}

func (r *redisCache) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, r.buildKey(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to incr key '%s' in Redis: %w", key, err)
	}
	return n, nil
}

func (r *redisCache) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := r.client.Publish(ctx, r.buildKey(channel), message).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel '%s': %w", channel, err)
	}
	return nil
}

func (r *redisCache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return r.client.Subscribe(ctx, r.buildKey(channel))
}

// RecordSlidingWindowHit implements the sliding-window counter as a single
// pipelined round trip: trim everything older than the window, count what
// remains, add the current hit, then refresh the key's TTL so it does not
// outlive the window it guards.
func (r *redisCache) RecordSlidingWindowHit(ctx context.Context, key string, now, windowStart time.Time, window time.Duration) (int64, error) {
	builtKey := r.buildKey(key)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, builtKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, builtKey)
	pipe.ZAdd(ctx, builtKey, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	pipe.Expire(ctx, builtKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record sliding window hit for '%s': %w", key, err)
	}
	return countCmd.Val(), nil
}

func (r *redisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, r.buildKeys(keys)...).Err()
}

func (r *redisCache) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.client.MGet(ctx, r.buildKeys(keys)...).Result()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}