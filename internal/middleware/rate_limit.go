package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitConfig defines the rate limiting parameters
	defaultBucketSize    = 100 // Maximum number of tokens
	defaultRefillRate    = 10  // Tokens per second
	defaultWindowSeconds = 1   // Time window in seconds
)

// RateLimiter implements a token bucket algorithm using Redis
type RateLimiter struct {
	rdb         *redis.Client
	bucketSize  int
	refillRate  int
	windowInSec int
	now         func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(rdb *redis.Client, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rdb:         rdb,
		bucketSize:  defaultBucketSize,
		refillRate:  defaultRefillRate,
		windowInSec: defaultWindowSeconds,
		now:         time.Now,
	}

	// Apply options
	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// RateLimiterOption defines a function to configure RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithBucketSize sets the bucket size
func WithBucketSize(size int) RateLimiterOption {
	return func(rl *RateLimiter) {
		if size > 0 {
			rl.bucketSize = size
		}
	}
}

// WithRefillRate sets the refill rate
func WithRefillRate(rate int) RateLimiterOption {
	return func(rl *RateLimiter) {
		if rate > 0 {
			rl.refillRate = rate
		}
	}
}

// WithWindow sets the time window in seconds
func WithWindow(seconds int) RateLimiterOption {
	return func(rl *RateLimiter) {
		if seconds > 0 {
			rl.windowInSec = seconds
		}
	}
}

// WithNow replaces the clock used for refills.
func WithNow(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// RateLimit returns a middleware that limits request rates using the token
// bucket algorithm. Buckets are per token subject when RequiresAuth ran
// first, per client IP otherwise. Redis failures let the request through.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)

		// Get client identifier (use IP if no token is present)
		clientID := c.ClientIP()
		if sub := c.GetString(TokenSubjectKey); sub != "" {
			clientID = "sub:" + sub
		}

		key := fmt.Sprintf("rate_limit:%s", clientID)
		bucketKey := fmt.Sprintf("%s:bucket", key)
		lastUpdateKey := fmt.Sprintf("%s:last_update", key)
		now := rl.now().Unix()
		ctx := c.Request.Context()

		// Get current tokens and last update time
		tokens, err := rl.rdb.Get(ctx, bucketKey).Int()
		if err == redis.Nil {
			tokens = rl.bucketSize // Initialize with full bucket
		} else if err != nil {
			logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
			c.Next()
			return
		}

		lastUpdate, err := rl.rdb.Get(ctx, lastUpdateKey).Int64()
		if err == redis.Nil {
			lastUpdate = now
		} else if err != nil {
			logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
			c.Next()
			return
		}

		// Calculate token refill
		elapsed := now - lastUpdate
		refill := int(elapsed) * rl.refillRate
		tokens = min(tokens+refill, rl.bucketSize)

		// Try to consume a token
		if tokens <= 0 {
			retryAfter := float64(1) / float64(rl.refillRate)
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(now+1, 10))
			c.Header("Retry-After", fmt.Sprintf("%.2f", retryAfter))
			logger.Info("Rate limit exceeded", zap.String("client", clientID))
			c.Error(&RateLimitError{})
			c.Abort()
			return
		}

		// Consume token and update bucket
		tokens--
		ttl := time.Duration(rl.windowInSec) * time.Second
		pipe := rl.rdb.TxPipeline()
		pipe.Set(ctx, bucketKey, tokens, ttl)
		pipe.Set(ctx, lastUpdateKey, now, ttl)

		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("Rate limit update failed", zap.Error(err))
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(tokens))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(now+int64(rl.windowInSec), 10))

		c.Next()
	}
}
