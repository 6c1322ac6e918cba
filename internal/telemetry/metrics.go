package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ingestion runs. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	Registry *prometheus.Registry

	// Ingestion runs by result ("ok", "error")
	Runs *prometheus.CounterVec
	// Full run latency
	RunLatency prometheus.Histogram
	// Fragment dispatches by agent and status
	Fragments *prometheus.CounterVec
	// Agent dispatch latency by agent
	AgentLatency *prometheus.HistogramVec
	// Skipped records by agent and reason
	Skips *prometheus.CounterVec
	// Leftover fields reported to the notification sink
	Leftovers prometheus.Counter
}

// NewMetrics registers every metric on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "migration_ingest_runs_total",
			Help: "Total ingestion runs by result",
		}, []string{"result"}),
		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "migration_ingest_duration_seconds",
			Help:    "Duration of a full ingestion run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Fragments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "migration_fragments_total",
			Help: "Routed fragments by agent and status",
		}, []string{"agent", "status"}),
		AgentLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "migration_agent_duration_seconds",
			Help:    "Duration of one agent dispatch",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		}, []string{"agent"}),
		Skips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "migration_skipped_records_total",
			Help: "Records not persisted by agent and reason",
		}, []string{"agent", "reason"}),
		Leftovers: f.NewCounter(prometheus.CounterOpts{
			Name: "migration_leftover_fields_total",
			Help: "Fields no agent claimed",
		}),
	}
}

func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(result).Inc()
		m.RunLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveFragment(agent, status string, d time.Duration) {
	if m != nil {
		m.Fragments.WithLabelValues(agent, status).Inc()
		m.AgentLatency.WithLabelValues(agent).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSkip(agent, reason string) {
	if m != nil {
		m.Skips.WithLabelValues(agent, reason).Inc()
	}
}

func (m *Metrics) AddLeftovers(n int) {
	if m != nil && n > 0 {
		m.Leftovers.Add(float64(n))
	}
}
