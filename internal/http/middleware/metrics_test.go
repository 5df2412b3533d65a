package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/upwise-backend/internal/observability"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status: want=200 got=%d", rec.Code)
	}
	return rec.Body.String()
}

func TestMetricsSeparatesStreamsFromLatency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m, "/api/me/events"))
	r.GET("/api/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/me/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/courses/42", "/api/courses/7", "/api/me/events", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	for _, want := range []string{
		`upwise_api_requests_total{method="GET",route="/api/courses/:courseId",status="200"} 2`,
		`upwise_api_request_duration_seconds_count{method="GET",route="/api/courses/:courseId"} 2`,
		`upwise_api_requests_total{method="GET",route="/api/me/events",status="200"} 1`,
		`upwise_api_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`upwise_realtime_stream_duration_seconds_count 1`,
		`upwise_realtime_streams_active 0`,
		`upwise_api_inflight_requests 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
	if strings.Contains(body, `upwise_api_request_duration_seconds_count{method="GET",route="/api/me/events"}`) {
		t.Fatalf("stream route must not feed the latency histogram")
	}
}

func TestMetricsNilIsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status: want=418 got=%d", rec.Code)
	}
}
