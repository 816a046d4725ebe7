// Package observability defines the Prometheus metrics surface.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	sourceRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_registrations_total",
			Help: "Tiled source registrations by outcome.",
		},
		[]string{"outcome"},
	)

	sourceLoadSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "source_load_seconds",
			Help:    "Time from source registration to the loaded event.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		},
	)

	isochroneCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isochrone_cache_results_total",
			Help: "Result-cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	layerOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_ops_total",
			Help: "Renderer layer operations by op and outcome.",
		},
		[]string{"op", "outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveSourceRegistration(outcome string, durationSeconds float64) {
	sourceRegistrationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "loaded" {
		sourceLoadSeconds.Observe(durationSeconds)
	}
}

func IncCacheHit()  { isochroneCacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { isochroneCacheResults.WithLabelValues("miss").Inc() }

func IncLayerOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	layerOpsTotal.WithLabelValues(op, outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
