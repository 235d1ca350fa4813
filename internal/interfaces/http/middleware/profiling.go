package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
)

// DefaultProfilingSkipPaths are routes too cheap to be worth labelling
var DefaultProfilingSkipPaths = []string{"/health", "/health/ready"}

// Profiling attaches pyroscope labels (route pattern and method) to the request goroutine
func Profiling(enabled bool, skipPaths []string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || slices.Contains(skipPaths, route) {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
