// Package cache holds the Redis-backed implementations of the service-layer
// store interfaces, so a multi-replica deployment shares sliding-window
// state instead of each instance keeping its own in-process map.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateStore implements service.RateStore on top of a sorted set per
// key: expired entries are trimmed with ZREMRANGEBYSCORE, ZCARD yields the
// count within the window, and an allowed attempt is recorded with a ZADD
// using the current timestamp as both score and member-disambiguator (a
// rejected attempt is not recorded). This mirrors the
// in-memory prune-then-append algorithm without requiring a Lua script.
type RedisRateStore struct {
	client *redis.Client
}

func NewRedisRateStore(client *redis.Client) *RedisRateStore {
	return &RedisRateStore{client: client}
}

func (s *RedisRateStore) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, int, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", cutoff.UnixNano()))
	count := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("cache.RedisRateStore.Allow: %w", err)
	}

	if int(count.Val()) >= max {
		oldest, err := s.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		retryAfter := 1
		if err == nil && len(oldest) == 1 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			if d := int(oldestAt.Add(window).Sub(now).Seconds()) + 1; d > retryAfter {
				retryAfter = d
			}
		}
		return false, retryAfter, nil
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("cache.RedisRateStore.Allow: %w", err)
	}
	return true, 0, nil
}
