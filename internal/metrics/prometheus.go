package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redis_vscode"

// Metrics holds every collector of one process on its own registry
type Metrics struct {
	Registry *prometheus.Registry

	// ScanRequestsTotal counts scan requests by outcome
	ScanRequestsTotal *prometheus.CounterVec
	// ScanDuration tracks scan request latency by outcome
	ScanDuration *prometheus.HistogramVec
	// DeleteRequestsTotal counts delete requests by outcome
	DeleteRequestsTotal *prometheus.CounterVec
	// EventsTotal counts telemetry events by name
	EventsTotal *prometheus.CounterVec
	// KeysScannedTotal sums keys returned by successful scans
	KeysScannedTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ScanRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "scan_requests_total",
			Help:      "Total scan requests by outcome",
		}, []string{"outcome"}),
		ScanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "scan_duration_seconds",
			Help:      "Scan request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		DeleteRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "delete_requests_total",
			Help:      "Total delete requests by outcome",
		}, []string{"outcome"}),
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "events_total",
			Help:      "Telemetry events emitted by name",
		}, []string{"event"}),
		KeysScannedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "keys_scanned_total",
			Help:      "Keys reported as scanned by successful scan requests",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_server",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api_server",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		ActiveRequests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api_server",
			Name:      "active_requests",
			Help:      "Currently active HTTP requests",
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveHTTP records one finished HTTP request
func (m *Metrics) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
