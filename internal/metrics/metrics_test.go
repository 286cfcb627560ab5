package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration is nil")
	}
	if m.GenerationsTotal == nil {
		t.Error("GenerationsTotal is nil")
	}
	if m.WorkspaceFiles == nil {
		t.Error("WorkspaceFiles is nil")
	}
	if m.EventSubscribers == nil {
		t.Error("EventSubscribers is nil")
	}
	if m.MaintenanceRunsTotal == nil {
		t.Error("MaintenanceRunsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record some sample metrics so they appear in output
	m.ObserveRequest("/agents", "GET", "200", 0.01)
	m.ObserveGeneration("mistral", "", 1.2)
	m.ObserveGeneration("mistral", "upstream", 0.3)
	m.WorkspaceOperationsTotal.WithLabelValues("create", "success").Inc()
	m.MaintenanceRunsTotal.WithLabelValues("success").Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"mistalic_http_requests_total",
		"mistalic_http_request_duration_seconds",
		"mistalic_generations_total",
		"mistalic_generation_duration_seconds",
		"mistalic_generation_errors_total",
		"mistalic_workspace_operations_total",
		"mistalic_workspace_files",
		"mistalic_agents",
		"mistalic_event_subscribers",
		"mistalic_events_published_total",
		"mistalic_maintenance_runs_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	m.ObserveRequest("/health", "GET", "200", 0.001)
	m.ObserveGeneration("gemini", "unavailable", 0.0)
	m.WorkspaceOperationsTotal.WithLabelValues("rename", "error").Inc()
	m.MaintenanceRunsTotal.WithLabelValues("error").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	expectedCount := 11 // Total number of metrics
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
}

func TestObserveGeneration(t *testing.T) {
	m := NewMetrics()

	m.ObserveGeneration("mistral", "", 1)
	m.ObserveGeneration("mistral", "", 1)
	m.ObserveGeneration("mistral", "upstream", 1)

	metricFamilies, _ := m.registry.Gather()
	for _, mf := range metricFamilies {
		switch *mf.Name {
		case "mistalic_generations_total":
			var total float64
			for _, metric := range mf.Metric {
				total += *metric.Counter.Value
			}
			if total != 3 {
				t.Errorf("Expected 3 generations, got %f", total)
			}
		case "mistalic_generation_errors_total":
			if len(mf.Metric) != 1 || *mf.Metric[0].Counter.Value != 1 {
				t.Error("Expected exactly one generation error")
			}
		}
	}
}

func TestWorkspaceGauges(t *testing.T) {
	m := NewMetrics()

	m.WorkspaceFiles.Set(3)
	m.Agents.Set(2)

	metricFamilies, _ := m.registry.Gather()
	found := 0
	for _, mf := range metricFamilies {
		switch *mf.Name {
		case "mistalic_workspace_files":
			found++
			if *mf.Metric[0].Gauge.Value != 3 {
				t.Errorf("Expected value 3, got %f", *mf.Metric[0].Gauge.Value)
			}
		case "mistalic_agents":
			found++
			if *mf.Metric[0].Gauge.Value != 2 {
				t.Errorf("Expected value 2, got %f", *mf.Metric[0].Gauge.Value)
			}
		}
	}
	if found != 2 {
		t.Error("workspace gauges not found")
	}
}

func TestMetricsIsolation(t *testing.T) {
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.EventsPublished.Inc()
	m1.EventsPublished.Inc()
	m2.EventsPublished.Inc()

	metricFamilies1, _ := m1.registry.Gather()
	for _, mf := range metricFamilies1 {
		if *mf.Name == "mistalic_events_published_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 2 {
				t.Errorf("m1: Expected value 2, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}

	metricFamilies2, _ := m2.registry.Gather()
	for _, mf := range metricFamilies2 {
		if *mf.Name == "mistalic_events_published_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 1 {
				t.Errorf("m2: Expected value 1, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}
}
