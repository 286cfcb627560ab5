package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Generation metrics
	GenerationsTotal      *prometheus.CounterVec
	GenerationDuration    *prometheus.HistogramVec
	GenerationErrorsTotal *prometheus.CounterVec

	// Workspace metrics
	WorkspaceOperationsTotal *prometheus.CounterVec
	WorkspaceFiles           prometheus.Gauge
	Agents                   prometheus.Gauge

	// Event stream metrics
	EventSubscribers prometheus.Gauge
	EventsPublished  prometheus.Counter

	// Maintenance metrics
	MaintenanceRunsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mistalic_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mistalic_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mistalic_generations_total",
				Help: "Total number of text generation calls",
			},
			[]string{"provider", "status"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mistalic_generation_duration_seconds",
				Help:    "Duration of text generation calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		GenerationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mistalic_generation_errors_total",
				Help: "Total number of failed text generation calls",
			},
			[]string{"provider", "error_type"},
		),

		WorkspaceOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mistalic_workspace_operations_total",
				Help: "Total number of workspace mutations",
			},
			[]string{"operation", "status"},
		),
		WorkspaceFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mistalic_workspace_files",
				Help: "Number of files in the workspace",
			},
		),
		Agents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mistalic_agents",
				Help: "Number of agents in the agent store",
			},
		),

		EventSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mistalic_event_subscribers",
				Help: "Number of connected event stream clients",
			},
		),
		EventsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mistalic_events_published_total",
				Help: "Total number of events published to the event stream",
			},
		),

		MaintenanceRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mistalic_maintenance_runs_total",
				Help: "Total number of storage maintenance runs",
			},
			[]string{"status"},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.HTTPRequestsTotal)
	m.registry.MustRegister(m.HTTPRequestDuration)

	m.registry.MustRegister(m.GenerationsTotal)
	m.registry.MustRegister(m.GenerationDuration)
	m.registry.MustRegister(m.GenerationErrorsTotal)

	m.registry.MustRegister(m.WorkspaceOperationsTotal)
	m.registry.MustRegister(m.WorkspaceFiles)
	m.registry.MustRegister(m.Agents)

	m.registry.MustRegister(m.EventSubscribers)
	m.registry.MustRegister(m.EventsPublished)

	m.registry.MustRegister(m.MaintenanceRunsTotal)
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveGeneration records one provider call. errorType is empty on success.
func (m *Metrics) ObserveGeneration(provider, errorType string, seconds float64) {
	status := "success"
	if errorType != "" {
		status = "error"
		m.GenerationErrorsTotal.WithLabelValues(provider, errorType).Inc()
	}
	m.GenerationsTotal.WithLabelValues(provider, status).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(seconds)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
