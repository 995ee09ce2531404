package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.Use(RateLimit(5, time.Minute, ClientIPKey)) // 5 requests per minute
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	// Make 5 requests - all should succeed
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i+1, w.Code)
		}
	}

	// 6th request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestRateLimitDifferentIPs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(2, time.Minute, ClientIPKey))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	// Different IPs should have separate limits
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	// New IP should not be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Different IP should not be rate limited, got %d", w.Code)
	}
}

func TestNewRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100, time.Minute)

	if limiter == nil {
		t.Fatal("Expected non-nil limiter")
	}
	if limiter.rate != 100 {
		t.Errorf("Expected rate 100, got %d", limiter.rate)
	}
	if limiter.window != time.Minute {
		t.Errorf("Expected window 1 minute, got %v", limiter.window)
	}
}

func TestRateLimitPerReviewer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("username", c.GetHeader("X-User"))
		c.Set("tenant", "tenant1")
		c.Next()
	})
	router.Use(RateLimit(1, time.Minute, ReviewerKey))
	router.POST("/analyze", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "ANALYZING"})
	})

	send := func(user string) int {
		req := httptest.NewRequest("POST", "/analyze", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("alice"); code != http.StatusAccepted {
		t.Errorf("Expected first request accepted, got %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Errorf("Expected second request from alice to be limited, got %d", code)
	}
	// same IP, different reviewer
	if code := send("bob"); code != http.StatusAccepted {
		t.Errorf("Expected bob to have his own bucket, got %d", code)
	}
}

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow("k"); !ok {
			t.Errorf("Request %d: expected allowed", i+1)
		}
	}
	ok, retryAfter := limiter.Allow("k")
	if ok {
		t.Error("Expected third request to be limited")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("Expected retry-after within the window, got %v", retryAfter)
	}
}
