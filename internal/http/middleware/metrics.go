package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
)

// Metrics records request counts and latency per route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPFinished(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
