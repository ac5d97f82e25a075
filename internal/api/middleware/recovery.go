package middleware

import (
	"errors"
	"net"
	"net/http"
	"runtime/debug"

	"pimsync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns handler panics into JSON 500s and logs them with a stack.
// Client disconnects mid-response are not worth a stack trace.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok {
			var opErr *net.OpError
			if errors.As(err, &opErr) {
				c.Abort()
				return
			}
		}

		log.Error("Panic in %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, recovered, debug.Stack())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
