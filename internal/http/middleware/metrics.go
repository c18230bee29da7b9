package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/observability"
)

// Metrics records request count and latency per route pattern.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		status := strconv.Itoa(c.Writer.Status())
		observability.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}
