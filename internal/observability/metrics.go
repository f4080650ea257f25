// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "exchange",
			Name:      "total",
			Help:      "Reconciliation exchanges by outcome.",
		},
		[]string{"collection", "outcome"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsync",
			Subsystem: "exchange",
			Name:      "duration_seconds",
			Help:      "Reconciliation exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
	documents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "exchange",
			Name:      "documents_total",
			Help:      "Ingested documents by resolution action.",
		},
		[]string{"collection", "action"},
	)
	admissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by verdict.",
		},
		[]string{"verdict"},
	)
	admissionFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "admission",
			Name:      "flags_total",
			Help:      "Keys flagged suspicious or blocked, by reason.",
		},
		[]string{"reason"},
	)
	retryOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsync",
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Retry queue delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	retryDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsync",
			Subsystem: "retry",
			Name:      "queue_depth",
			Help:      "Operations waiting in the retry queue.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			exchanges, exchangeDuration, documents,
			admissionDecisions, admissionFlags,
			retryOutcomes, retryDepth,
		)
	})
}

// Handler serves the default registry for GET /metrics
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordExchange outcome: ok or the stage the exchange failed at
func RecordExchange(collection, outcome string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(collection, outcome).Inc()
	exchangeDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

func RecordDocument(collection, action string) {
	RegisterMetrics()
	documents.WithLabelValues(collection, action).Inc()
}

func RecordAdmission(verdict string) {
	RegisterMetrics()
	admissionDecisions.WithLabelValues(verdict).Inc()
}

func RecordFlag(reason string) {
	RegisterMetrics()
	admissionFlags.WithLabelValues(reason).Inc()
}

func RecordRetry(outcome string) {
	RegisterMetrics()
	retryOutcomes.WithLabelValues(outcome).Inc()
}

func SetRetryDepth(n int) {
	RegisterMetrics()
	retryDepth.Set(float64(n))
}
