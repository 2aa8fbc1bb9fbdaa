package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/mutker/hwmond/internal/logger"
)

// RequestLoggingMiddleware logs every request at debug level so dashboard
// polling does not drown out the daemon's own log stream.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Debug().Msgf("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}
