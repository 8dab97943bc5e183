package energy

import (
	"github.com/go-playground/validator/v10"
)

// DefaultSolver is the solver backend used when none is configured.
const DefaultSolver = "glpk"

// Simulation holds the parameters a solver backend needs to run. It is
// a plain configuration record consumed by the solver collaborator; the
// container itself never interprets it.
type Simulation struct {
	// Solver is the name of the solver backend (e.g. "glpk", "gurobi").
	Solver string `json:"solver" yaml:"solver" validate:"required"`

	// Debug puts the solver into verbose debug mode.
	Debug bool `json:"debug" yaml:"debug"`

	// Verbose streams solver output to the console.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Duals saves dual variables and reduced costs in the results.
	Duals bool `json:"duals" yaml:"duals"`

	// Timesteps are the timesteps to be simulated. Must be non-empty.
	Timesteps []int `json:"timesteps" yaml:"timesteps" validate:"required,min=1"`

	// Relaxed relaxes integer variables (MILP problems only).
	Relaxed bool `json:"relaxed" yaml:"relaxed"`

	// FastBuild skips the standard constraint-building path of the
	// solver backend where the backend supports it.
	FastBuild bool `json:"fast_build" yaml:"fast_build"`

	// ObjectiveOptions parameterizes the objective function.
	ObjectiveOptions map[string]any `json:"objective_options,omitempty" yaml:"objective_options,omitempty"`

	// SolveOptions are passed through to the backend's solve call.
	SolveOptions map[string]any `json:"solve_options,omitempty" yaml:"solve_options,omitempty"`
}

var simulationValidate = validator.New()

// NewSimulation constructs a simulation record for the given timesteps,
// applying the default solver and default flags. Construction fails
// when the timestep sequence is empty.
func NewSimulation(timesteps []int) (*Simulation, error) {
	sim := &Simulation{
		Solver:           DefaultSolver,
		Timesteps:        timesteps,
		ObjectiveOptions: make(map[string]any),
		SolveOptions:     make(map[string]any),
	}
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	return sim, nil
}

// Validate checks the simulation record. An empty timestep sequence is
// a fatal construction error, never retried.
func (s *Simulation) Validate() error {
	if len(s.Timesteps) == 0 {
		return NewValidationError("simulation requires a non-empty timestep sequence", nil).
			WithOperation("simulation")
	}
	if s.Solver == "" {
		s.Solver = DefaultSolver
	}
	if err := simulationValidate.Struct(s); err != nil {
		return NewValidationError("invalid simulation parameters", err).
			WithOperation("simulation")
	}
	return nil
}
