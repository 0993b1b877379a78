package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus instruments.
type Metrics struct {
	eventsReceived *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	frameErrors    prometheus.Counter
	patchesSent    prometheus.Counter
	patchBytes     prometheus.Counter
	activeSessions prometheus.Gauge
	eventDuration  *prometheus.HistogramVec
}

// NewMetrics registers the server metrics on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Client events received, by event type",
		}, []string{"type"}),

		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Client events dropped because the session queue was full",
		}),

		frameErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Frames that failed to decode",
		}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_sent_total",
			Help:      "Fragment patches sent to clients",
		}),

		patchBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_bytes_total",
			Help:      "Encoded patch payload bytes sent to clients",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently connected sessions",
		}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent replaying one event on the session loop",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}
