package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "upwise"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	lessonMarks      *prometheus.CounterVec
	heartbeatSeconds *prometheus.CounterVec
	heartbeats       *prometheus.CounterVec
	quizSubmissions  *prometheus.CounterVec
	quizScore        prometheus.Histogram
	purchases        *prometheus.CounterVec
	versionConflicts *prometheus.CounterVec
	summaryCache     *prometheus.CounterVec
	publishFailures  *prometheus.CounterVec
	streamsActive    prometheus.Gauge
	streamDuration   prometheus.Histogram
}

// NewMetrics registers every collector on reg. Pass prometheus.NewRegistry()
// in tests to keep them isolated from the default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		lessonMarks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "lesson_marks_total",
			Help:      "Lesson marks by outcome (added, duplicate).",
		}, []string{"outcome"}),
		heartbeatSeconds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "heartbeat_seconds_total",
			Help:      "Reported study seconds split into accrued and clamped.",
		}, []string{"kind"}),
		heartbeats: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "heartbeats_total",
			Help:      "Heartbeats by outcome (accrued, ignored, rate_limited).",
		}, []string{"outcome"}),
		quizSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "quiz_submissions_total",
			Help:      "Quiz submissions by result (passed, failed).",
		}, []string{"result"}),
		quizScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "quiz_percentage",
			Help:      "Distribution of graded quiz percentages.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		purchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "purchase_actions_total",
			Help:      "Purchase ledger actions (purchase, restore, cancel).",
		}, []string{"action"}),
		versionConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "version_conflicts_total",
			Help:      "Optimistic write retries by mutation.",
		}, []string{"mutation"}),
		summaryCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "summary",
			Name:      "cache_total",
			Help:      "Summary cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		publishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "realtime",
			Name:      "publish_failures_total",
			Help:      "Realtime publish failures by event.",
		}, []string{"event"}),
		streamsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "realtime",
			Name:      "streams_active",
			Help:      "Open server-sent event streams.",
		}),
		streamDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "realtime",
			Name:      "stream_duration_seconds",
			Help:      "Lifetime of closed server-sent event streams.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

// CountAPI counts a request without observing its latency.
func (m *Metrics) CountAPI(method, route, status string) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.streamsActive.Inc()
}

func (m *Metrics) StreamClosed(dur time.Duration) {
	if m == nil {
		return
	}
	m.streamsActive.Dec()
	m.streamDuration.Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncLessonMark(added bool) {
	if m == nil {
		return
	}
	outcome := "duplicate"
	if added {
		outcome = "added"
	}
	m.lessonMarks.WithLabelValues(outcome).Inc()
}

// ObserveHeartbeat records one heartbeat: reported seconds, the seconds that
// were credited, and whether the report reached the ledger at all.
func (m *Metrics) ObserveHeartbeat(outcome string, reported, accrued float64) {
	if m == nil {
		return
	}
	m.heartbeats.WithLabelValues(outcome).Inc()
	if accrued > 0 {
		m.heartbeatSeconds.WithLabelValues("accrued").Add(accrued)
	}
	if clamped := reported - accrued; clamped > 0 {
		m.heartbeatSeconds.WithLabelValues("clamped").Add(clamped)
	}
}

func (m *Metrics) ObserveQuizSubmission(passed bool, percentage int) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.quizSubmissions.WithLabelValues(result).Inc()
	m.quizScore.Observe(float64(percentage))
}

func (m *Metrics) IncPurchaseAction(action string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(action).Inc()
}

func (m *Metrics) IncVersionConflict(mutation string) {
	if m == nil {
		return
	}
	m.versionConflicts.WithLabelValues(mutation).Inc()
}

func (m *Metrics) IncSummaryCache(result string) {
	if m == nil {
		return
	}
	m.summaryCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncPublishFailure(event string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(event).Inc()
}
