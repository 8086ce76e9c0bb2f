package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sumii/sumii-core/internal/service"
)

// RateLimiterConfig holds configuration for the sliding-window rate limiter.
type RateLimiterConfig struct {
	// MaxRequests is the maximum number of requests allowed within the window.
	MaxRequests int
	// Window is the sliding window duration (e.g. 1 minute).
	Window time.Duration
}

// RateLimiter enforces a per-user sliding window over a pluggable
// service.RateStore, so a single-instance deployment can run in-memory
// while a multi-replica one shares state through Redis.
type RateLimiter struct {
	store  service.RateStore
	config RateLimiterConfig
}

func NewRateLimiter(store service.RateStore, config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{store: store, config: config}
}

// RateLimit returns chi middleware that enforces per-user rate limiting.
// It requires that auth middleware has already set the user ID in context;
// unauthenticated requests fall back to the remote address.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserIDFromContext(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, retryAfter, err := rl.store.Allow(r.Context(), key, rl.config.MaxRequests, rl.config.Window)
			if err != nil {
				// A degraded rate-limit store must not block traffic.
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
