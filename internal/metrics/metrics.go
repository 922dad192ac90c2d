// Package metrics exposes Prometheus collectors for the compliance gate.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for gate decisions.
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
)

var (
	gateDecisionsTotal         *prometheus.CounterVec
	gateInvalidURLsTotal       prometheus.Counter
	robotsFetchTotal           *prometheus.CounterVec
	robotsFetchDurationSeconds prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gateDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_decisions_total",
				Help: "Total number of admission decisions, labeled by deciding check and result.",
			},
			[]string{"check", "result"},
		)

		gateInvalidURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gate_invalid_urls_total",
				Help: "Total number of checks rejected because the URL had no usable host.",
			},
		)

		robotsFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_robots_fetch_total",
				Help: "Total robots.txt fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		robotsFetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gate_robots_fetch_duration_seconds",
				Help:    "Histogram of robots.txt fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveDecision counts one gate decision.
func ObserveDecision(check string, allowed bool) {
	Init()
	result := ResultDenied
	if allowed {
		result = ResultAllowed
	}
	gateDecisionsTotal.WithLabelValues(check, result).Inc()
}

// ObserveInvalidURL counts a check rejected before any policy ran.
func ObserveInvalidURL() {
	Init()
	gateInvalidURLsTotal.Inc()
}

// ObserveRobotsFetch records the outcome and latency of a robots.txt fetch.
func ObserveRobotsFetch(outcome string, duration time.Duration) {
	Init()
	robotsFetchTotal.WithLabelValues(outcome).Inc()
	robotsFetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
