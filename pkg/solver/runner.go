package solver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openwatt/openwatt/pkg/energy"
	"github.com/openwatt/openwatt/pkg/telemetry"
)

// RunResult summarizes one completed solver run.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Solver is the backend that produced the results.
	Solver string `json:"solver"`

	// Duration is the wall time of the solve.
	Duration time.Duration `json:"duration"`

	// Results are the per-entity flows, also stored on the system.
	Results energy.Results `json:"results"`
}

// Runner resolves a backend and executes solver runs.
type Runner struct {
	registry *Registry
	tel      *telemetry.Telemetry
}

// NewRunner creates a runner over the given registry. A nil registry
// gets the default registry with the built-in backends; a nil telemetry
// gets the default quiet telemetry.
func NewRunner(registry *Registry, tel *telemetry.Telemetry) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	if tel == nil {
		// DefaultConfig always validates.
		tel, _ = telemetry.NewTelemetry(telemetry.DefaultConfig())
	}
	return &Runner{registry: registry, tel: tel}
}

// Registry returns the backend registry for further registrations.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run solves the system with the backend named by its simulation
// parameters and stores the results on the system. The group mapping is
// forced first so grouping rule errors fail the run before the backend
// starts.
func (r *Runner) Run(ctx context.Context, es *energy.EnergySystem) (*RunResult, error) {
	sim := es.Simulation()
	if sim == nil {
		return nil, energy.NewSolverError("system has no simulation parameters", nil).WithOperation("run")
	}
	if err := sim.Validate(); err != nil {
		return nil, err
	}

	backend, err := r.registry.Get(sim.Solver)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.tel.Logger.WithSolver(sim.Solver).WithRunID(runID)

	ctx, span := r.tel.Tracer.StartSolveSpan(ctx, runID, sim.Solver)
	defer span.End()

	forceStart := time.Now()
	groups, err := es.Groups()
	r.tel.Metrics.RecordGroupForce(len(groups), time.Since(forceStart), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.WithField("timesteps", len(sim.Timesteps)).Info("Solver run started")

	start := time.Now()
	results, err := backend.Solve(ctx, es, sim)
	duration := time.Since(start)

	if err != nil {
		telemetry.RecordError(span, err)
		r.tel.Metrics.RecordSolverRun(sim.Solver, "error", duration)
		logger.WithError(err).Error("Solver run failed")
		return nil, err
	}

	es.SetResults(results)

	telemetry.RecordSuccess(span)
	r.tel.Metrics.RecordSolverRun(sim.Solver, "success", duration)
	logger.WithField("entities", len(results)).
		WithField("duration", duration.String()).
		Info("Solver run completed")

	return &RunResult{
		RunID:    runID,
		Solver:   sim.Solver,
		Duration: duration,
		Results:  results,
	}, nil
}
