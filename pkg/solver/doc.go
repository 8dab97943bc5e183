// Package solver runs optimization backends against a built energy
// system. Backends are registered by name in a Registry; the Runner
// resolves the backend from the system's simulation parameters, times
// the solve, and stores the results back on the system.
package solver
