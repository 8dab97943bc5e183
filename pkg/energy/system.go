package energy

import (
	"time"

	"github.com/rs/zerolog"
)

// Results holds the solver output per entity uid, one value per
// simulation timestep. Stored verbatim on the container after a solve.
type Results map[string][]float64

// groupPhase tags the state of the deferred group mapping.
type groupPhase int

const (
	// groupsMaterialized: the mapping is concrete and current.
	groupsMaterialized groupPhase = iota

	// groupsPending: entities added since the last read are queued and
	// will be folded into the mapping on the next read.
	groupsPending
)

// Config parameterizes a new EnergySystem.
type Config struct {
	// Entities are pre-existing entities to incorporate at
	// construction. Their grouping folds are applied eagerly.
	Entities []Entity

	// Groupings are applied to every entity, in order, after the
	// mandatory default uid grouping. Later groupings never overwrite
	// earlier groupings' keys; two groupings producing the same key is
	// a user error the system does not detect.
	Groupings []Grouping

	// Simulation holds the solver parameters. Optional until a solve.
	Simulation *Simulation

	// Regions are the regions of the supply system.
	Regions []*Region

	// TimeIndex defines the modeled time range, aligned with the
	// simulation timesteps.
	TimeIndex []time.Time

	// Logger receives structured build and force events. Defaults to a
	// disabled logger.
	Logger zerolog.Logger
}

// EnergySystem is the container for an energy supply system: the entity
// registry, the grouping engine, and the simulation bookkeeping handed
// to a solver backend.
//
// The zero value is not usable; construct with New. The container is
// not safe for concurrent mutation (see the package documentation).
type EnergySystem struct {
	entities  []Entity
	groupings []Grouping

	phase   groupPhase
	groups  Groups
	pending []Entity

	simulation *Simulation
	regions    []*Region
	timeIndex  []time.Time
	results    Results

	logger zerolog.Logger
}

// New creates an EnergySystem. The default uid grouping is prepended to
// cfg.Groupings, and any pre-supplied entities are folded eagerly.
func New(cfg Config) (*EnergySystem, error) {
	es := &EnergySystem{
		entities:   append([]Entity(nil), cfg.Entities...),
		groupings:  append([]Grouping{DefaultGrouping()}, cfg.Groupings...),
		phase:      groupsMaterialized,
		groups:     make(Groups),
		simulation: cfg.Simulation,
		regions:    append([]*Region(nil), cfg.Regions...),
		timeIndex:  append([]time.Time(nil), cfg.TimeIndex...),
		logger:     cfg.Logger.With().Str("component", "energy-system").Logger(),
	}

	for _, e := range es.entities {
		if err := es.groups.fold(e, es.groupings); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Adopt replaces the container's contents in place from cfg, exactly as
// if the container had been constructed with New. Existing entities,
// groupings, and results are discarded. Used by snapshot restore, where
// the restored state overwrites whatever the container held before.
func (es *EnergySystem) Adopt(cfg Config) error {
	fresh, err := New(cfg)
	if err != nil {
		return err
	}
	logger := es.logger
	*es = *fresh
	es.logger = logger
	return nil
}

// Register implements Registrar: newly constructed entities join the
// container exactly like an explicit Add.
func (es *EnergySystem) Register(e Entity) {
	es.Add(e)
}

// Add appends the entity to the entity list and queues its grouping
// fold. The fold is not applied here: it is deferred to the next Groups
// read, so a misbehaving grouping rule fails at read time, never at Add
// time.
func (es *EnergySystem) Add(e Entity) {
	es.entities = append(es.entities, e)
	es.pending = append(es.pending, e)
	es.phase = groupsPending

	es.logger.Trace().
		Str("uid", e.UID()).
		Str("kind", string(e.Kind())).
		Msg("Entity added")
}

// Groups forces the pending folds, in insertion order, and returns the
// materialized group mapping. Reads are O(1) until the next Add. On a
// grouping failure the queue is left intact, so the same error surfaces
// on every subsequent read until the rule is fixed.
func (es *EnergySystem) Groups() (Groups, error) {
	if es.phase == groupsMaterialized {
		return es.groups, nil
	}

	start := time.Now()
	for _, e := range es.pending {
		if err := es.groups.fold(e, es.groupings); err != nil {
			// Earlier queue entries were fully folded; keeping them
			// queued is harmless because folds are idempotent.
			es.logger.Error().Err(err).Str("uid", e.UID()).Msg("Group force failed")
			return nil, err
		}
	}

	es.logger.Debug().
		Int("folded", len(es.pending)).
		Int("buckets", len(es.groups)).
		Dur("duration", time.Since(start)).
		Msg("Group mapping forced")

	es.pending = es.pending[:0]
	es.phase = groupsMaterialized
	return es.groups, nil
}

// Entities returns the registered entities in insertion order. The
// returned slice is the container's own storage; callers must not
// mutate it.
func (es *EnergySystem) Entities() []Entity {
	return es.entities
}

// Nodes is an alias view over the entity list.
func (es *EnergySystem) Nodes() []Entity {
	return es.entities
}

// SetNodes replaces the entity list wholesale, bypassing grouping. This
// is a deliberate escape hatch for callers that rebuild the entity set
// out of band; the group mapping is not touched and will keep
// reflecting previously folded entities.
func (es *EnergySystem) SetNodes(nodes []Entity) {
	es.entities = nodes
}

// Simulation returns the simulation parameters, or nil when unset.
func (es *EnergySystem) Simulation() *Simulation {
	return es.simulation
}

// SetSimulation replaces the simulation parameters.
func (es *EnergySystem) SetSimulation(sim *Simulation) {
	es.simulation = sim
}

// Regions returns the regions of the system.
func (es *EnergySystem) Regions() []*Region {
	return es.regions
}

// AddRegion appends a region to the system.
func (es *EnergySystem) AddRegion(r *Region) {
	es.regions = append(es.regions, r)
}

// TimeIndex returns the modeled time range.
func (es *EnergySystem) TimeIndex() []time.Time {
	return es.timeIndex
}

// SetTimeIndex replaces the modeled time range.
func (es *EnergySystem) SetTimeIndex(idx []time.Time) {
	es.timeIndex = idx
}

// Results returns the solver results, or nil while no solve has run.
func (es *EnergySystem) Results() Results {
	return es.results
}

// SetResults stores solver results verbatim on the container.
func (es *EnergySystem) SetResults(r Results) {
	es.results = r
}
