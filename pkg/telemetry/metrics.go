package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for openwatt.
type Metrics struct {
	config MetricsConfig

	// Entity metrics
	entitiesAdded *prometheus.CounterVec
	groupBuckets  prometheus.Gauge

	// Grouping engine metrics
	groupForces        prometheus.Counter
	groupForceFailures prometheus.Counter
	groupForceDuration prometheus.Histogram

	// Solver metrics
	solverRuns     *prometheus.CounterVec
	solverDuration *prometheus.HistogramVec

	// Store metrics
	storeOps *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		entitiesAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_added_total",
				Help:      "Total number of entities added to the energy system",
			},
			[]string{"kind"},
		),
		groupBuckets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "group_buckets",
				Help:      "Current number of group buckets in the materialized mapping",
			},
		),

		groupForces: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "group_forces_total",
				Help:      "Total number of group mapping forces",
			},
		),
		groupForceFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "group_force_failures_total",
				Help:      "Total number of group mapping forces that failed",
			},
		),
		groupForceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "group_force_duration_seconds",
				Help:      "Duration of group mapping forces in seconds",
				Buckets:   buckets,
			},
		),

		solverRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solver_runs_total",
				Help:      "Total number of solver runs",
			},
			[]string{"solver", "status"},
		),
		solverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solver_run_duration_seconds",
				Help:      "Duration of solver runs in seconds",
				Buckets:   buckets,
			},
			[]string{"solver"},
		),

		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"operation", "status"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations detected",
			},
			[]string{"policy", "severity"},
		),
	}

	registry.MustRegister(
		m.entitiesAdded,
		m.groupBuckets,
		m.groupForces,
		m.groupForceFailures,
		m.groupForceDuration,
		m.solverRuns,
		m.solverDuration,
		m.storeOps,
		m.policyViolations,
	)

	return m, nil
}

// RecordEntityAdded increments the counter for added entities.
func (m *Metrics) RecordEntityAdded(kind string) {
	if m.entitiesAdded == nil {
		return
	}
	m.entitiesAdded.WithLabelValues(kind).Inc()
}

// RecordGroupForce records a force of the group mapping.
func (m *Metrics) RecordGroupForce(buckets int, duration time.Duration, err error) {
	if m.groupForces == nil {
		return
	}
	m.groupForces.Inc()
	if err != nil {
		m.groupForceFailures.Inc()
		return
	}
	m.groupForceDuration.Observe(duration.Seconds())
	m.groupBuckets.Set(float64(buckets))
}

// RecordSolverRun records a solver run with its status and duration.
func (m *Metrics) RecordSolverRun(solver, status string, duration time.Duration) {
	if m.solverRuns == nil {
		return
	}
	m.solverRuns.WithLabelValues(solver, status).Inc()
	m.solverDuration.WithLabelValues(solver).Observe(duration.Seconds())
}

// RecordStoreOp records a store operation.
func (m *Metrics) RecordStoreOp(operation, status string) {
	if m.storeOps == nil {
		return
	}
	m.storeOps.WithLabelValues(operation, status).Inc()
}

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
