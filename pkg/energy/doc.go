// Package energy models an energy supply system as a graph of typed
// entities (buses, components, regions) that is handed to a solver
// backend for optimization.
//
// The package centers on the EnergySystem container. Entities register
// into a container through an explicit Registrar (usually via a Builder
// bound to the container), and the container classifies them into named
// groups through an ordered list of Grouping rules. Group membership is
// folded in lazily: Add only queues the entity, and the pending folds are
// applied on the next Groups read. Bulk construction of a large system
// therefore pays the grouping cost once, at read time, instead of once
// per insertion.
//
// The container is not safe for concurrent mutation. It assumes a single
// logical writer; callers that share a container across goroutines must
// serialize Add and Groups externally.
package energy
