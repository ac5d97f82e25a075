package middleware

import (
	"time"

	"pimsync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logger routes request logs through the service logger so API traffic and
// sync-pass output land in one stream. Server errors and slow requests are
// raised above info level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	const slowRequest = 5 * time.Second

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		switch {
		case status >= 500:
			log.Error("%s %s -> %d in %s (%s)", c.Request.Method, c.Request.URL.Path, status, latency, c.ClientIP())
		case latency > slowRequest:
			log.Warn("%s %s -> %d in %s (slow)", c.Request.Method, c.Request.URL.Path, status, latency)
		default:
			log.Info("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}
