package solver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openwatt/openwatt/pkg/energy"
)

// Backend solves one energy system over the configured timesteps.
type Backend interface {
	// Name is the backend name resolved from Simulation.Solver.
	Name() string

	// Solve computes per-entity flows for every simulation timestep.
	Solve(ctx context.Context, es *energy.EnergySystem, sim *energy.Simulation) (energy.Results, error)
}

// Registry holds the available solver backends by name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates a registry with the built-in balance backend
// registered under its own name and as the default solver.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}

	balance := NewBalanceBackend()
	r.Register(balance)

	// The default solver name resolves to the balance backend until a
	// real LP backend is registered over it.
	r.RegisterAs(energy.DefaultSolver, balance)

	return r
}

// Register adds a backend under its own name, replacing any previous
// registration.
func (r *Registry) Register(b Backend) {
	r.RegisterAs(b.Name(), b)
}

// RegisterAs adds a backend under an explicit name.
func (r *Registry) RegisterAs(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
}

// Get resolves a backend by name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return nil, energy.NewSolverError(
			fmt.Sprintf("unknown solver backend %q", name), nil,
		).WithOperation("resolve")
	}
	return b, nil
}

// List returns the registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
