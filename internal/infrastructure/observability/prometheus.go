package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

// FunnelMetrics exposes the engine's business counters to Prometheus. It
// satisfies services.IngestionRecorder.
type FunnelMetrics struct {
	registry    *prometheus.Registry
	ingested    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewFunnelMetrics registers the funnel collectors on a private registry
func NewFunnelMetrics() *FunnelMetrics {
	m := &FunnelMetrics{
		registry: prometheus.NewRegistry(),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_events_ingested_total",
			Help: "Funnel events accepted and counted, by event type.",
		}, []string{"event"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_events_duplicate_total",
			Help: "Replayed deliveries ignored by idempotency key, by event type.",
		}, []string{"event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_events_rejected_total",
			Help: "Deliveries that failed, by error type.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_stage_transitions_total",
			Help: "Patient stage advances, by target stage.",
		}, []string{"to"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_ingest_duration_seconds",
			Help:    "Time spent processing one webhook delivery.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.ingested,
		m.duplicates,
		m.rejected,
		m.transitions,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *FunnelMetrics) EventIngested(event entities.EventType) {
	m.ingested.WithLabelValues(string(event)).Inc()
}

func (m *FunnelMetrics) EventDuplicate(event entities.EventType) {
	m.duplicates.WithLabelValues(string(event)).Inc()
}

func (m *FunnelMetrics) EventRejected(reason apperrors.ErrorType) {
	m.rejected.WithLabelValues(string(reason)).Inc()
}

func (m *FunnelMetrics) StageAdvanced(to entities.FunnelStage) {
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *FunnelMetrics) ObserveIngest(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

// Gatherer returns the registry backing the collectors
func (m *FunnelMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *FunnelMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
