package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger creates a logging middleware using zap. The Authorization header is
// never logged.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.GetHeader("X-Request-Id"); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if claims := Claims(c); claims != nil {
			fields = append(fields, zap.Int("user_id", claims.UserID))
		}

		logger.Info("request", fields...)

		for _, e := range c.Errors {
			logger.Error("request error", zap.Error(e.Err))
		}
	}
}
