package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Query stages timed by Metrics.
const (
	StageResolve     = "resolve"
	StageCompile     = "compile"
	StageExecute     = "execute"
	StageReconstruct = "reconstruct"
)

// Metrics exports vault query metrics. A nil *Metrics is a valid no-op.
type Metrics struct {
	queries      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	typeFailures prometheus.Counter
	rows         prometheus.Histogram
}

// NewMetrics creates the vault query collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_queries_total",
			Help: "Count of vault queries by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_query_duration_seconds",
			Help:    "Latency of vault query stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		typeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_type_resolution_failures_total",
			Help: "Number of stored contract type names that could not be resolved.",
		}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_query_rows_returned",
			Help:    "Number of states returned per page.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.duration, m.typeFailures, m.rows)
	}
	return m
}

// ObserveQuery counts a finished query.
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// ObserveStage records the latency of one query stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// TypeResolutionFailed counts a contract type name the resolver skipped.
func (m *Metrics) TypeResolutionFailed() {
	if m == nil {
		return
	}
	m.typeFailures.Inc()
}

// ObserveRows records the size of a returned page.
func (m *Metrics) ObserveRows(n int) {
	if m == nil {
		return
	}
	m.rows.Observe(float64(n))
}
