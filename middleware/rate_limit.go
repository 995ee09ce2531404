package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(c *gin.Context) string

// ClientIPKey counts requests per client IP
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// ReviewerKey counts requests per authenticated reviewer, falling back to the
// client IP
func ReviewerKey(c *gin.Context) string {
	if username := GetUsername(c); username != "" {
		return GetTenant(c) + "/" + username
	}
	return c.ClientIP()
}

// RateLimiter is a fixed-window request counter
type RateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	lastReset time.Time
	rate      int           // requests per window
	window    time.Duration // time window
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counts:    make(map[string]int),
		lastReset: time.Now(),
		rate:      rate,
		window:    window,
	}
}

// Allow counts one request for key and reports whether it is within the
// limit, plus the time until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastReset) > l.window {
		l.counts = make(map[string]int)
		l.lastReset = time.Now()
	}
	retryAfter := l.window - time.Since(l.lastReset)

	if l.counts[key] >= l.rate {
		return false, retryAfter
	}
	l.counts[key]++
	return true, retryAfter
}

// RateLimit limits requests per key within window
func RateLimit(rate int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		k := key(c)
		ok, retryAfter := limiter.Allow(k)
		if !ok {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"key", k,
				"path", c.FullPath(),
			)
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
