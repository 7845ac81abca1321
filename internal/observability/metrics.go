package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somersaultd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"endpoint", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "somersaultd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "path", "status"},
	)
	diagRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somersaultd",
			Subsystem: "diag",
			Name:      "requests_total",
			Help:      "Decoded diagnostic requests by service and outcome.",
		},
		[]string{"endpoint", "service", "outcome"},
	)
	decodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somersaultd",
			Subsystem: "diag",
			Name:      "decode_failures_total",
			Help:      "Inbound frames that could not be decoded.",
		},
		[]string{"endpoint"},
	)
	sessionCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somersaultd",
			Subsystem: "session",
			Name:      "closes_total",
			Help:      "Diagnostic session closes by cause.",
		},
		[]string{"endpoint", "cause"},
	)
	flipsDone = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somersaultd",
			Subsystem: "flip",
			Name:      "steps_total",
			Help:      "Forward flips actually performed.",
		},
		[]string{"endpoint"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, diagRequests, decodeFailures, sessionCloses, flipsDone)
	})
}

func RecordHTTPRequest(endpoint, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(endpoint, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(endpoint, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordRequest(endpoint, service, outcome string) {
	RegisterMetrics()
	diagRequests.WithLabelValues(endpoint, service, outcome).Inc()
}

func RecordDecodeFailure(endpoint string) {
	RegisterMetrics()
	decodeFailures.WithLabelValues(endpoint).Inc()
}

func RecordSessionClose(endpoint, cause string) {
	RegisterMetrics()
	sessionCloses.WithLabelValues(endpoint, cause).Inc()
}

func RecordFlips(endpoint string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	flipsDone.WithLabelValues(endpoint).Add(float64(n))
}
