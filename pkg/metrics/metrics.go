package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP/gRPC request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	// Outcome of calls to the course and enrollment registries.
	// result is one of: ok, negative, error.
	UpstreamChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_checks_total",
			Help: "Total number of calls to external registries",
		},
		[]string{"registry", "result"},
	)

	MaterialOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_operations_total",
			Help: "Total number of material operations",
		},
		[]string{"operation", "status"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of material events published",
		},
		[]string{"type", "status"},
	)

	StoreUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_up",
			Help: "Whether the last store liveness check succeeded",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UpstreamChecksTotal,
		MaterialOperationsTotal,
		EventsPublishedTotal,
		StoreUp,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMetricsServer builds a standalone server exposing /metrics on port.
func NewMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RecordRequest records request metrics
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

func RecordUpstreamCheck(registry, result string) {
	UpstreamChecksTotal.WithLabelValues(registry, result).Inc()
}

func RecordMaterialOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MaterialOperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordEvent(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
