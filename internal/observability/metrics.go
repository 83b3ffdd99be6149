// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	EventsHandled   *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec
	EventLatency    *prometheus.HistogramVec
	OrdersTracked   prometheus.Gauge
	OrdersAdded     prometheus.Counter
	OrdersSpent     prometheus.Counter
	HighestSlotSeen prometheus.Gauge

	// Execution metrics
	ExecutionsSubmitted *prometheus.CounterVec
	ExecutionsFailed    *prometheus.CounterVec
	RelayLatency        prometheus.Histogram

	// Ingestion metrics
	SourceReconnects prometheus.Counter

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "strategyd"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_handled_total",
			Help:      "Total number of events handled by kind",
		}, []string{"kind"}),
		EventErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "event_errors_total",
			Help:      "Total number of events that returned an error, by kind",
		}, []string{"kind"}),
		EventLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "event_latency_seconds",
			Help:      "Event handling latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		OrdersTracked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "orders_tracked",
			Help:      "Number of orders currently under custody",
		}),
		OrdersAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "orders_added_total",
			Help:      "Total number of orders taken into custody",
		}),
		OrdersSpent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "orders_spent_total",
			Help:      "Total number of tracked orders removed because they were spent",
		}),
		HighestSlotSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "highest_slot_seen",
			Help:      "Highest slot number seen",
		}),
		ExecutionsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "submitted_total",
			Help:      "Total number of executions accepted by the relay, by network",
		}, []string{"network"}),
		ExecutionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "failed_total",
			Help:      "Total number of executions that failed, by network and stage",
		}, []string{"network", "stage"}),
		RelayLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "publish_latency_seconds",
			Help:      "Relay publish latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SourceReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_reconnects_total",
			Help:      "Total number of chain source reconnects",
		}),
		LastEventTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last successfully handled event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordEvent records a handled event and its latency.
func (m *Metrics) RecordEvent(kind string, d time.Duration, err error) {
	m.EventsHandled.WithLabelValues(kind).Inc()
	m.EventLatency.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.EventErrors.WithLabelValues(kind).Inc()
		return
	}
	m.LastEventTimestamp.SetToCurrentTime()
}

// UpdateCustody records custody index changes.
func (m *Metrics) UpdateCustody(tracked, added, spent int) {
	m.OrdersTracked.Set(float64(tracked))
	m.OrdersAdded.Add(float64(added))
	m.OrdersSpent.Add(float64(spent))
}

// UpdateHighestSlot raises the highest slot gauge.
func (m *Metrics) UpdateHighestSlot(slot uint64) {
	m.HighestSlotSeen.Set(float64(slot))
}

// RecordSubmission records a relay publish outcome. stage is empty on success.
func (m *Metrics) RecordSubmission(network, stage string, d time.Duration) {
	if d > 0 {
		m.RelayLatency.Observe(d.Seconds())
	}
	if stage == "" {
		m.ExecutionsSubmitted.WithLabelValues(network).Inc()
		return
	}
	m.ExecutionsFailed.WithLabelValues(network, stage).Inc()
}

// RecordReconnect counts a chain source reconnect.
func (m *Metrics) RecordReconnect() {
	m.SourceReconnects.Inc()
}
