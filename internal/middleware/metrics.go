package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rec-portal/internal/service"
)

// Metrics records latency and status for every page and form post. Scrapes
// of the metrics endpoint itself are not counted.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// Route templates keep per-request ids out of the label set.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
