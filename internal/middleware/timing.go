package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const startTimeKey = "request_start_time"

// WithRequestTiming records the request start time so slow endpoints can
// attach processing metadata to their responses.
func WithRequestTiming() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()
	}
}

// TimingMeta returns response metadata with the elapsed handler time, or nil
// when the timing middleware is not installed.
func TimingMeta(c *gin.Context) map[string]interface{} {
	value, exists := c.Get(startTimeKey)
	if !exists {
		return nil
	}
	start, ok := value.(time.Time)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
}
