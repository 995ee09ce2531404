package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

func TestRecoveryReturnsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger.Init(&logger.Config{Level: "info", Format: "text", Output: &buf})

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.POST("/api/documents/:id/feedback", func(c *gin.Context) {
		panic("nil review session")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-1/feedback", nil)
	req.Header.Set(RequestIDHeader, "req-feedback-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got %q", w.Body.String())
	}
	if body["error"] != "Internal server error" {
		t.Errorf("Expected generic error message, got %q", body["error"])
	}
	if body["request_id"] != "req-feedback-1" {
		t.Errorf("Expected request_id req-feedback-1, got %q", body["request_id"])
	}

	out := buf.String()
	if !strings.Contains(out, "panic recovered") {
		t.Errorf("Expected panic log line, got %q", out)
	}
	if !strings.Contains(out, "request_id=req-feedback-1") {
		t.Errorf("Expected request id in log line, got %q", out)
	}
	if !strings.Contains(out, "/api/documents/doc-1/feedback") {
		t.Errorf("Expected path in log line, got %q", out)
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/api/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"documents": []string{}})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Internal server error") {
		t.Errorf("Expected no error body, got %q", w.Body.String())
	}
}
