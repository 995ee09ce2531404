package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// RequestIDHeader is echoed back and forwarded to the FlowAudit API
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, reusing the caller's if present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set("request_id", requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID gets the request ID from gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
