package energy

import "testing"

func TestNewSimulation_EmptyTimestepsFails(t *testing.T) {
	if _, err := NewSimulation(nil); err == nil {
		t.Fatalf("Expected an error for an empty timestep sequence")
	}
	if _, err := NewSimulation([]int{}); err == nil {
		t.Fatalf("Expected an error for an empty timestep slice")
	}

	_, err := NewSimulation(nil)
	if !IsValidationError(err) {
		t.Errorf("Expected a validation-classified error, got: %v", err)
	}
}

func TestNewSimulation_Defaults(t *testing.T) {
	sim, err := NewSimulation([]int{0, 1, 2})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if sim.Solver != "glpk" {
		t.Errorf("Expected default solver glpk, got %q", sim.Solver)
	}
	if sim.Debug || sim.Verbose || sim.Duals || sim.Relaxed || sim.FastBuild {
		t.Errorf("Expected all flags to default to false")
	}
	if len(sim.Timesteps) != 3 {
		t.Errorf("Expected the timesteps preserved verbatim, got %v", sim.Timesteps)
	}
	if sim.ObjectiveOptions == nil || sim.SolveOptions == nil {
		t.Errorf("Expected option maps to be initialized")
	}
}

func TestSimulation_ValidateFillsDefaultSolver(t *testing.T) {
	sim := &Simulation{Timesteps: []int{0}}
	if err := sim.Validate(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if sim.Solver != "glpk" {
		t.Errorf("Expected the default solver to be filled in, got %q", sim.Solver)
	}
}
