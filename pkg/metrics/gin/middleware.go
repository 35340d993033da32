package gin

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkstudy/ms3-contenido/pkg/metrics"
)

// PrometheusMiddleware records request count and latency per route.
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method + " " + route

		metrics.RecordRequest(serviceName, method, statusCode, time.Since(start))
	}
}
