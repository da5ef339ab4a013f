package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/service"
)

// Metrics records request counts and latency on the metrics service.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveRequest(time.Since(start))
	}
}
