package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)
	clock := &stepClock{now: time.Now()}

	// Setup test router
	router := gin.New()
	router.Use(ErrorHandler())

	// Create rate limiter with small bucket for testing
	rl := NewRateLimiter(rdb,
		WithBucketSize(3),
		WithRefillRate(1),
		WithWindow(60),
		WithNow(clock.Now),
	)

	// Add test route with rate limiting
	router.Use(rl.RateLimit())
	router.GET("/drinks", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true})
	})

	tests := []struct {
		name           string
		expectedStatus int
		headers        map[string]string
		setupTest      func()
	}{
		{
			name:           "First request succeeds",
			expectedStatus: http.StatusOK,
			headers: map[string]string{
				"X-RateLimit-Limit":     "3",
				"X-RateLimit-Remaining": "2",
			},
		},
		{
			name:           "Second request succeeds",
			expectedStatus: http.StatusOK,
			headers: map[string]string{
				"X-RateLimit-Limit":     "3",
				"X-RateLimit-Remaining": "1",
			},
		},
		{
			name:           "Third request succeeds",
			expectedStatus: http.StatusOK,
			headers: map[string]string{
				"X-RateLimit-Limit":     "3",
				"X-RateLimit-Remaining": "0",
			},
		},
		{
			name:           "Fourth request fails",
			expectedStatus: http.StatusTooManyRequests,
			headers: map[string]string{
				"X-RateLimit-Limit":     "3",
				"X-RateLimit-Remaining": "0",
				"Retry-After":           "1.00",
			},
		},
		{
			name:           "Request after refill succeeds",
			expectedStatus: http.StatusOK,
			headers: map[string]string{
				"X-RateLimit-Limit":     "3",
				"X-RateLimit-Remaining": "1",
			},
			setupTest: func() {
				// Two seconds refill two tokens
				clock.Advance(2 * time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupTest != nil {
				tt.setupTest()
			}

			w := httptest.NewRecorder()
			req, err := http.NewRequest("GET", "/drinks", nil)
			require.NoError(t, err)

			// Set test client IP
			req.RemoteAddr = "192.168.1.1:12345"

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			// Check rate limit headers
			for header, expected := range tt.headers {
				assert.Equal(t, expected, w.Header().Get(header))
			}

			// Verify reset time is in the future
			reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
			require.NoError(t, err)
			assert.Greater(t, reset, clock.Now().Unix())
		})
	}
}

func TestRateLimiterRejectionUsesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)

	router := gin.New()
	router.Use(ErrorHandler())
	router.Use(NewRateLimiter(rdb, WithBucketSize(1), WithWindow(60)).RateLimit())
	router.GET("/drinks", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/drinks", nil)
		router.ServeHTTP(w, req)
		if i == 1 {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.JSONEq(t, `{"success":false,"error":429,"message":"too many requests"}`, w.Body.String())
		}
	}
}

func TestRateLimiterWithToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)

	// Setup test router with token middleware
	router := gin.New()
	router.Use(ErrorHandler())

	// Add middleware to set the token subject
	router.Use(func(c *gin.Context) {
		c.Set(TokenSubjectKey, "auth0|barista")
		c.Next()
	})

	// Create rate limiter
	rl := NewRateLimiter(rdb, WithBucketSize(2), WithWindow(60))
	router.Use(rl.RateLimit())

	router.GET("/drinks", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true})
	})

	// Test that rate limit is per token, not IP
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/drinks", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Third request should fail
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/drinks", nil)
	req.RemoteAddr = "192.168.1.2:12345" // Different IP
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, rdb := newTestRedis(t)

	router := gin.New()
	router.Use(ErrorHandler())
	router.Use(NewRateLimiter(rdb, WithBucketSize(1), WithRefillRate(1), WithWindow(5)).RateLimit())
	router.GET("/drinks", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true})
	})

	do := func() int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/drinks", nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	// bucket keys expire with the window
	mr.FastForward(6 * time.Second)
	assert.Equal(t, http.StatusOK, do())
}

func TestRateLimiterFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, rdb := newTestRedis(t)
	mr.Close()

	router := gin.New()
	router.Use(ErrorHandler())
	router.Use(NewRateLimiter(rdb, WithBucketSize(1)).RateLimit())
	router.GET("/drinks", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/drinks", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterOptions(t *testing.T) {
	rl := NewRateLimiter(nil, // nil client for this test
		WithBucketSize(200),
		WithRefillRate(20),
		WithWindow(2),
	)

	assert.Equal(t, 200, rl.bucketSize)
	assert.Equal(t, 20, rl.refillRate)
	assert.Equal(t, 2, rl.windowInSec)

	// non-positive values keep the defaults
	rl = NewRateLimiter(nil, WithBucketSize(0), WithRefillRate(-1), WithWindow(0))
	assert.Equal(t, defaultBucketSize, rl.bucketSize)
	assert.Equal(t, defaultRefillRate, rl.refillRate)
	assert.Equal(t, defaultWindowSeconds, rl.windowInSec)
}
