package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "reach"

// Metrics holds the engine's Prometheus metrics. A nil *Metrics records
// nothing.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Metrics struct {
	// ComputesTotal counts fixpoint computations.
	ComputesTotal prometheus.Counter

	// CacheHitsTotal counts queries answered from a valid cached result.
	CacheHitsTotal prometheus.Counter

	// ReentrantQueriesTotal counts queries answered from the in-flight
	// working set.
	ReentrantQueriesTotal prometheus.Counter

	// PassesPerCompute observes outer passes per computation.
	PassesPerCompute prometheus.Histogram

	// ComputeDurationSeconds measures one computation.
	ComputeDurationSeconds prometheus.Histogram

	// ReachableRegions is the size of the last reachable set.
	ReachableRegions prometheus.Gauge

	// EventsCollectedTotal counts auto-collected event items.
	EventsCollectedTotal prometheus.Counter

	// NonConvergenceTotal counts computations that hit MaxPasses.
	NonConvergenceTotal prometheus.Counter

	// DiagnosticsTotal counts diagnostics by code.
	DiagnosticsTotal *prometheus.CounterVec
}

// NewMetrics creates the engine metrics and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep runs isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ComputesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "computes_total",
			Help:      "Total reachability computations",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "cache_hits_total",
			Help:      "Total queries answered from the cached result",
		}),
		ReentrantQueriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "reentrant_queries_total",
			Help:      "Total queries answered from the in-flight working set",
		}),
		PassesPerCompute: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "passes_per_compute",
			Help:      "Outer event-convergence passes per computation",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 100, 1000},
		}),
		ComputeDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "compute_duration_seconds",
			Help:      "Time spent in one reachability computation",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ReachableRegions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "reachable_regions",
			Help:      "Number of regions in the last reachable set",
		}),
		EventsCollectedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "events_collected_total",
			Help:      "Total event items collected automatically",
		}),
		NonConvergenceTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "non_convergence_total",
			Help:      "Total computations that exceeded the pass bound",
		}),
		DiagnosticsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "rules",
			Name:      "diagnostics_total",
			Help:      "Total rule diagnostics by code",
		}, []string{"code"}),
	}
}

func (m *Metrics) observeCompute(r *Result, seconds float64) {
	if m == nil {
		return
	}
	m.ComputesTotal.Inc()
	m.PassesPerCompute.Observe(float64(r.Passes))
	m.ComputeDurationSeconds.Observe(seconds)
	m.ReachableRegions.Set(float64(len(r.Reachable)))
	m.EventsCollectedTotal.Add(float64(len(r.Collected)))
	if !r.Converged {
		m.NonConvergenceTotal.Inc()
	}
	for _, d := range r.Diagnostics {
		m.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHitsTotal.Inc()
	}
}

func (m *Metrics) reentrant() {
	if m != nil {
		m.ReentrantQueriesTotal.Inc()
	}
}
