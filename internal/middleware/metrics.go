package middleware

import (
	"github.com/campusdesk/portal/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics creates a Prometheus metrics middleware. Requests are labelled by
// route template so ids do not multiply series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordServed(c.Request.Method, route, c.Writer.Status())
	}
}
