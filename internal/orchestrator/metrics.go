package orchestrator

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediastudio/internal/domain"
)

// Metrics is a Prometheus-backed Observer.
type Metrics struct {
	transitions  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	persistRetry *prometheus.CounterVec
	activeRuns   prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns metrics registered with the global registry. The
// collectors are created once so several orchestrators can share them.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the orchestrator collectors with reg, reusing any
// that are already registered. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		transitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastudio",
			Subsystem: "orchestrator",
			Name:      "transitions_total",
			Help:      "State transitions of generation runs.",
		}, []string{"kind", "to"})),
		runs: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastudio",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Finished generation runs by final state.",
		}, []string{"kind", "state"})),
		runDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediastudio",
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Wall time of generation runs from validation to final state.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind", "state"})),
		persistRetry: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastudio",
			Subsystem: "orchestrator",
			Name:      "persist_retries_total",
			Help:      "Retried persistence attempts after a successful generation.",
		}, []string{"kind"})),
		activeRuns: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediastudio",
			Subsystem: "orchestrator",
			Name:      "active_runs",
			Help:      "Generation runs currently in progress.",
		})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) OnTransition(kind domain.JobKind, from, to State) {
	if m == nil {
		return
	}
	if from == StateIdle || from == StatePersistedPartially {
		m.activeRuns.Inc()
	}
	m.transitions.WithLabelValues(string(kind), string(to)).Inc()
}

func (m *Metrics) OnFinish(kind domain.JobKind, state State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runs.WithLabelValues(string(kind), string(state)).Inc()
	m.runDuration.WithLabelValues(string(kind), string(state)).Observe(elapsed.Seconds())
}

func (m *Metrics) OnPersistRetry(kind domain.JobKind) {
	if m == nil {
		return
	}
	m.persistRetry.WithLabelValues(string(kind)).Inc()
}

var _ Observer = (*Metrics)(nil)
