package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentdesk/backend/internal/metrics"
)

// Metrics reports each request to rec, labelled by the matched route pattern.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
