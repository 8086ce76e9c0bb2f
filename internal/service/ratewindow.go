package service

import (
	"context"
	"sync"
	"time"
)

// RateStore is the sliding-window counter boundary. The teacher's
// internal/middleware/ratelimit.go hard-codes an in-process sync.Map; here
// the same algorithm is kept but moved behind an interface so a
// Redis-backed store (internal/cache.RedisRateStore, grounded on
// github.com/redis/go-redis/v9) can share one window across replicas
// without a code fork per backend.
type RateStore interface {
	// Allow reports whether one more attempt for key falls within max
	// requests per window, and records the attempt only when it is
	// allowed. retryAfterSeconds is only meaningful when allowed is false.
	Allow(ctx context.Context, key string, max int, window time.Duration) (allowed bool, retryAfterSeconds int, err error)
}

type userWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// InMemoryRateStore is the development/single-instance default, adapted
// from the teacher's RateLimiter (same prune-then-append sliding window).
type InMemoryRateStore struct {
	windows sync.Map // map[string]*userWindow
	nowFunc func() time.Time
}

func NewInMemoryRateStore() *InMemoryRateStore {
	return &InMemoryRateStore{nowFunc: time.Now}
}

func (s *InMemoryRateStore) Allow(_ context.Context, key string, max int, window time.Duration) (bool, int, error) {
	now := s.nowFunc()
	cutoff := now.Add(-window)

	val, _ := s.windows.LoadOrStore(key, &userWindow{})
	uw := val.(*userWindow)

	uw.mu.Lock()
	defer uw.mu.Unlock()

	uw.timestamps = pruneExpired(uw.timestamps, cutoff)

	if len(uw.timestamps) >= max {
		oldest := uw.timestamps[0]
		retryAfter := int(oldest.Add(window).Sub(now).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter, nil
	}

	uw.timestamps = append(uw.timestamps, now)
	return true, 0, nil
}

func pruneExpired(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for _, t := range timestamps {
		if !t.Before(cutoff) {
			timestamps[idx] = t
			idx++
		}
	}
	return timestamps[:idx]
}
