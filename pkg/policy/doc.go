// Package policy lints scenario definitions with Rego policies.
//
// The engine ships a set of built-in policies covering common modeling
// mistakes (shadowed uids, disconnected components, sinks without a
// demand) and can load additional .rego or .json policy files from
// disk. Watched policy paths are hot-reloaded on change.
//
// Policies express findings as a deny set; each entry carries a message
// and a severity. Violations at error severity or above block the
// scenario, warnings are reported but do not block.
package policy
