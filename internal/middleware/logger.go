package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"storefront/pkg/log"
)

// Logger emits one structured log line per request, leveled by status code
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"latency":    time.Since(start),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.WithFields(fields).Error("Server error")
		case status >= 400:
			log.WithFields(fields).Warn("Client error")
		default:
			log.WithFields(fields).Info("Request completed")
		}
	}
}

// LoggerWithConfig defers to gin's own logger with custom configuration
func LoggerWithConfig(config gin.LoggerConfig) gin.HandlerFunc {
	return gin.LoggerWithConfig(config)
}
