package monitoring

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry,
// so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Pipe metrics
	PipesCreated prometheus.Counter
	PipesRemoved prometheus.Counter
	Transfers    *prometheus.CounterVec
	Bytes        *prometheus.CounterVec
	TransferSize *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	mu       sync.Mutex
	snapshot counters
	reads    *window
	writes   *window
}

type counters struct {
	requests      int64
	errors        int64
	totalDuration float64
	created       int64
	removed       int64
	bytesRead     int64
	bytesWritten  int64
	failures      int64
	connections   int64
}

// Source exposes the live state of a pipe filesystem for gauges.
type Source interface {
	GetFree() int
	Capacity() int
	Waiting() (readers, writers int)
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		reads:     newWindow(windowSize),
		writes:    newWindow(windowSize),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipefs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipefs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipefs_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method", "path"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipefs_service_calls_total",
				Help: "Total number of service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipefs_service_duration_seconds",
				Help:    "Service tool call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "tool"},
		),

		PipesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipefs_pipes_created_total",
				Help: "Total number of pipes created",
			},
		),
		PipesRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipefs_pipes_removed_total",
				Help: "Total number of pipes removed",
			},
		),
		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipefs_transfers_total",
				Help: "Reads and writes by outcome",
			},
			[]string{"op", "result"},
		),
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipefs_bytes_total",
				Help: "Bytes moved through pipes",
			},
			[]string{"op"},
		),
		TransferSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipefs_transfer_size_bytes",
				Help:    "Bytes moved per completed read or write",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"op"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipefs_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipefs_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipefs_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Watch registers gauges that read src on every scrape.
func (m *Metrics) Watch(src Source) {
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipefs_pipes_in_use",
			Help: "Number of pipe slots in use",
		},
		func() float64 { return float64(src.Capacity() - src.GetFree()) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipefs_pipes_free",
			Help: "Number of free pipe slots",
		},
		func() float64 { return float64(src.GetFree()) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipefs_readers_waiting",
			Help: "Readers blocked across all pipes",
		},
		func() float64 { r, _ := src.Waiting(); return float64(r) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipefs_writers_waiting",
			Help: "Writers blocked across all pipes",
		},
		func() float64 { _, w := src.Waiting(); return float64(w) },
	)
}

// Registry returns the registry backing this collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.requests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.errors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service tool call.
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.connections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.connections--
	m.mu.Unlock()
}

// PipeCreated implements pipefs.Observer.
func (m *Metrics) PipeCreated(string) {
	m.PipesCreated.Inc()
	m.mu.Lock()
	m.snapshot.created++
	m.mu.Unlock()
}

// PipeRemoved implements pipefs.Observer.
func (m *Metrics) PipeRemoved(string) {
	m.PipesRemoved.Inc()
	m.mu.Lock()
	m.snapshot.removed++
	m.mu.Unlock()
}

// Transferred implements pipefs.Observer.
func (m *Metrics) Transferred(op string, n int, err error) {
	result := transferResult(err)
	m.Transfers.WithLabelValues(op, result).Inc()
	if n > 0 {
		m.Bytes.WithLabelValues(op).Add(float64(n))
	}
	if err == nil && n > 0 {
		m.TransferSize.WithLabelValues(op).Observe(float64(n))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch op {
	case "read":
		m.snapshot.bytesRead += int64(n)
		if err == nil && n > 0 {
			m.reads.add(float64(n))
		}
	case "write":
		m.snapshot.bytesWritten += int64(n)
		if err == nil && n > 0 {
			m.writes.add(float64(n))
		}
	}
	if err != nil {
		m.snapshot.failures++
	}
}

func transferResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pipefs.ErrRemoved):
		return "removed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

var _ pipefs.Observer = (*Metrics)(nil)
