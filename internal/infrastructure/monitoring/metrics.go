package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Mount metrics
	MountOps     *prometheus.CounterVec
	MountsActive prometheus.Gauge

	// Watcher metrics
	WatchedFolders prometheus.Gauge
	Notifications  *prometheus.CounterVec

	// Allocation metrics
	Allocations *prometheus.CounterVec
	Collisions  prometheus.Counter

	// Lifecycle metrics
	LifecycleUnmounts prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	ActiveMounts   int64   `json:"active_mounts"`
	WatchedFolders int64   `json:"watched_folders"`
	Allocations    int64   `json:"allocations"`
	Collisions     int64   `json:"collisions"`
	TotalDuration  float64 `json:"total_duration_seconds"`
}

// NewMetrics creates a new metrics collector
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

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskfs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskfs_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskfs_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Mount metrics
		MountOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_mount_operations_total",
				Help: "Total number of mount and unmount operations",
			},
			[]string{"op", "result"},
		),
		MountsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskfs_mounts_active",
				Help: "Number of archives currently mounted",
			},
		),

		// Watcher metrics
		WatchedFolders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskfs_watched_folders",
				Help: "Number of folders with at least one listener",
			},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_notifications_total",
				Help: "Folder change notifications by delivery kind",
			},
			[]string{"kind"},
		),

		// Allocation metrics
		Allocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_allocations_total",
				Help: "Path allocations by mode and result",
			},
			[]string{"mode", "result"},
		),
		Collisions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deskfs_allocation_collisions_total",
				Help: "Name collisions resolved with a numeric suffix",
			},
		),

		// Lifecycle metrics
		LifecycleUnmounts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deskfs_lifecycle_unmounts_total",
				Help: "Archives unmounted because nothing observed them",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskfs_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "deskfs_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordMount records a mount or unmount; op is "mount", "unmount" or
// "lifecycle".
func (m *Metrics) RecordMount(op, result string) {
	if m == nil {
		return
	}
	m.MountOps.WithLabelValues(op, result).Inc()
}

// SetMountsActive sets the number of mounted archives
func (m *Metrics) SetMountsActive(count int) {
	if m == nil {
		return
	}
	m.MountsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveMounts = int64(count)
	m.mu.Unlock()
}

// SetWatchedFolders sets the number of watched folders
func (m *Metrics) SetWatchedFolders(count int) {
	if m == nil {
		return
	}
	m.WatchedFolders.Set(float64(count))
	m.mu.Lock()
	m.snapshot.WatchedFolders = int64(count)
	m.mu.Unlock()
}

// RecordNotification records one notify call by how it was delivered:
// "root", "exact" or "bubble".
func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind).Inc()
}

// RecordAllocation records the outcome of a path allocation
func (m *Metrics) RecordAllocation(mode, result string) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(mode, result).Inc()
	if result == "success" {
		m.mu.Lock()
		m.snapshot.Allocations++
		m.mu.Unlock()
	}
}

// IncCollisions increments the collision counter
func (m *Metrics) IncCollisions() {
	if m == nil {
		return
	}
	m.Collisions.Inc()
	m.mu.Lock()
	m.snapshot.Collisions++
	m.mu.Unlock()
}

// IncLifecycleUnmounts increments the lifecycle unmount counter
func (m *Metrics) IncLifecycleUnmounts() {
	if m == nil {
		return
	}
	m.LifecycleUnmounts.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// Snapshot returns the current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
