package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/igot/pkg/metrics"
)

// KeyPrefix namespaces every view key this service writes to Redis.
const KeyPrefix = "igot:view:"

// GenerationKey holds the shared view generation. It sits outside KeyPrefix
// so Purge never deletes it.
const GenerationKey = "igot:viewgen"

const purgeBatch = 100

// Redis shares cached views between service instances. The generation
// counter lives in Redis too, so a write on one instance invalidates the
// views every instance reads.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Get treats any failure as a miss so reads fall back to the store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordErrorByComponent("cache_redis", "get")
		}
		return nil, false
	}
	return val, true
}

// Set stores val with the configured TTL. Failures are counted, not returned.
func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := r.client.Set(ctx, KeyPrefix+key, val, r.ttl).Err(); err != nil {
		metrics.RecordErrorByComponent("cache_redis", "set")
	}
}

// Generation reads the shared generation. A missing key is generation 0.
func (r *Redis) Generation(ctx context.Context) (uint64, error) {
	gen, err := r.client.Get(ctx, GenerationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read view generation: %w", err)
	}
	return gen, nil
}

// Purge advances the shared generation, then deletes every key under
// KeyPrefix. Once the generation has moved, a failed delete only leaves
// unreachable keys behind to expire, so it is counted and not returned.
func (r *Redis) Purge(ctx context.Context) error {
	if err := r.client.Incr(ctx, GenerationKey).Err(); err != nil {
		return fmt.Errorf("advance view generation: %w", err)
	}
	if err := r.deleteViews(ctx); err != nil {
		metrics.RecordErrorByComponent("cache_redis", "purge")
	}
	return nil
}

func (r *Redis) deleteViews(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", purgeBatch).Iterator()
	keys := make([]string, 0, purgeBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == purgeBatch {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge views: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan views: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("purge views: %w", err)
		}
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
