package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "swapkit")

	m.eventsReceived.WithLabelValues("input").Inc()
	m.eventsReceived.WithLabelValues("input").Inc()
	m.eventsDropped.Inc()
	m.activeSessions.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := make(map[string]bool)
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"swapkit_events_received_total",
		"swapkit_events_dropped_total",
		"swapkit_active_sessions",
	} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestMetricsSeparateRegistries(t *testing.T) {
	// Two servers must be able to coexist without duplicate
	// registration panics.
	NewMetrics(prometheus.NewRegistry(), "swapkit")
	NewMetrics(prometheus.NewRegistry(), "swapkit")
}
