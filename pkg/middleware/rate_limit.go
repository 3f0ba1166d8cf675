package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/pkg/cache"
	"github.com/mo-amir99/course-enrollment-server/pkg/response"
)

// RateLimiter enforces a fixed-window request budget per client IP.
type RateLimiter struct {
	store  cache.Counter
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(store cache.Counter, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window, logger: logger}
}

// Middleware returns a Gin middleware that enforces rate limiting. Store
// failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		windowStart := time.Now().Truncate(rl.window).Unix()
		key := "ratelimit:" + c.ClientIP() + ":" + strconv.FormatInt(windowStart, 10)

		count, err := rl.store.Increment(c.Request.Context(), key, rl.window)
		if err != nil {
			rl.logger.Warn("rate limit store unavailable", slog.String("error", err.Error()))
			c.Next()
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			return
		}

		c.Next()
	}
}

// SweepEvery periodically clears expired in-memory counters until ctx ends.
// It is a no-op for stores that expire keys themselves.
func SweepEvery(ctx context.Context, store cache.Counter, interval time.Duration) {
	mem, ok := store.(*cache.MemoryCounter)
	if !ok {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mem.Sweep()
		}
	}
}
