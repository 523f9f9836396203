// Package observability holds the Prometheus instrument set and the
// rolling latency window behind the staff perf endpoint.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoshino-robotics/wakaba/internal/executor"
)

// StageTTFA labels the perf window samples on the staff page.
const StageTTFA = "say_to_first_segment"

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	OrchestratorEvents *prometheus.CounterVec
	KioskCommands      *prometheus.CounterVec
	ProviderErrors     *prometheus.CounterVec
	SSEClients         *prometheus.GaugeVec
	StaffSessions      prometheus.Gauge
	PendingReviews     *prometheus.GaugeVec
	TTFALatency        prometheus.Histogram

	window *ttfaWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OrchestratorEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrator_events_total",
			Help:      "Events processed by the orchestrator, by type.",
		}, []string{"event"}),
		KioskCommands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kiosk_commands_total",
			Help:      "Commands fanned out to kiosk subscribers, by type.",
		}, []string{"type"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider failures by provider and code.",
		}, []string{"provider", "code"}),
		SSEClients: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected SSE clients by surface.",
		}, []string{"surface"}),
		StaffSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staff_sessions",
			Help:      "Active staff cookie sessions.",
		}),
		PendingReviews: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_reviews",
			Help:      "Items awaiting staff review, by queue.",
		}, []string{"queue"}),
		TTFALatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ttfa_ms",
			Help:      "Time from chat dispatch to first speech segment in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 3500},
		}),
		window: newTTFAWindow(256),
	}
}

// ObserveTTFA implements executor.MetricObserver: each sample lands in the
// histogram and the staff perf window.
func (m *Metrics) ObserveTTFA(obs executor.TTFAObservation) {
	ms := float64(obs.LatencyMS())
	m.TTFALatency.Observe(ms)
	m.window.Observe(ms)
}

// ObserveStreamError matches the executor's OnStreamError callback shape.
func (m *Metrics) ObserveStreamError(requestID string, emittedSegments int) {
	m.ProviderErrors.WithLabelValues("llm_stream", "stream_failed").Inc()
	m.window.ObserveIncident("stream_error")
}

// PerfSnapshot returns the rolling-window percentiles for /api/staff/perf.
func (m *Metrics) PerfSnapshot() LatencySnapshot {
	return m.window.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
