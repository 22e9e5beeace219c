package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all engine metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Lot store metrics
	StoreOperations        *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Business metrics
	LotsCreated            *prometheus.CounterVec
	UnitsAllocated         *prometheus.CounterVec
	AllocationConflicts    *prometheus.CounterVec
	InsufficientInventory  *prometheus.CounterVec
	OutboxEventsPublished  *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "retail",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "http_requests_in_flight",
		Help:      "Number of HTTP requests currently being served",
	})

	m.StoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "store_operations_total",
		Help:      "Total number of lot store operations",
	}, []string{"collection", "operation", "status"})

	m.StoreOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Lot store operation latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"collection", "operation"})

	m.LotsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "lots_created_total",
		Help:      "Total number of inventory lots created",
	}, []string{"product"})

	m.UnitsAllocated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "units_allocated_total",
		Help:      "Total units drawn from lots by the allocator",
	}, []string{"product"})

	m.AllocationConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "allocation_conflicts_total",
		Help:      "Allocation attempts that lost a revision race",
	}, []string{"product"})

	m.InsufficientInventory = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "insufficient_inventory_total",
		Help:      "Allocation requests rejected for insufficient stock",
	}, []string{"product"})

	m.OutboxEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "outbox_events_published_total",
		Help:      "Outbox events published to the broker",
	}, []string{"topic", "status"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StoreOperations,
		m.StoreOperationDuration,
		m.LotsCreated,
		m.UnitsAllocated,
		m.AllocationConflicts,
		m.InsufficientInventory,
		m.OutboxEventsPublished,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveStoreOperation records a completed lot store operation
func (m *Metrics) ObserveStoreOperation(collection, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(collection, operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}
