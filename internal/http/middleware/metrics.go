package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/observability"
)

const unmatchedRoute = "unmatched"

// Metrics records request counts and latency per route template. Requests on
// streamRoutes stay open for the life of an event stream, so they feed the
// stream gauge and lifetime histogram instead of the latency histogram and
// in-flight gauge.
func Metrics(m *observability.Metrics, streamRoutes ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	streams := make(map[string]struct{}, len(streamRoutes))
	for _, r := range streamRoutes {
		streams[r] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		if _, ok := streams[route]; ok {
			m.StreamOpened()
			defer func() { m.StreamClosed(time.Since(start)) }()
			c.Next()
			m.CountAPI(method, route, strconv.Itoa(c.Writer.Status()))
			return
		}

		m.ApiInflightInc()
		defer m.ApiInflightDec()
		c.Next()
		m.ObserveAPI(method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
