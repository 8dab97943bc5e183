package scenario

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/openwatt/openwatt/pkg/energy"
	"github.com/openwatt/openwatt/pkg/stores"
	"github.com/openwatt/openwatt/pkg/telemetry"
)

// BuildOptions tune system construction.
type BuildOptions struct {
	// Logger receives build events. Defaults to a disabled logger.
	Logger zerolog.Logger

	// TimeIndexStart anchors the generated time index. Zero means the
	// index is left empty.
	TimeIndexStart time.Time

	// TimeIndexStep is the interval between timesteps. Defaults to one
	// hour when a start is given.
	TimeIndexStep time.Duration

	// Metrics, when set, counts entities as they are added.
	Metrics *telemetry.Metrics
}

// Build constructs a live energy system from a validated scenario.
// Buses are created before components so connections resolve, and
// grouping rules are compiled before any entity is added so that rule
// compile errors fail the build rather than a later groups read.
func Build(sc *Scenario, opts BuildOptions) (*energy.EnergySystem, error) {
	groupings, err := NewRuleEvaluator().CompileAll(sc.Groupings)
	if err != nil {
		return nil, err
	}

	sim, err := energy.NewSimulation(timestepRange(sc.Simulation.Timesteps))
	if err != nil {
		return nil, err
	}
	if sc.Simulation.Solver != "" {
		sim.Solver = sc.Simulation.Solver
	}
	sim.Debug = sc.Simulation.Debug
	sim.Verbose = sc.Simulation.Verbose
	sim.Duals = sc.Simulation.Duals
	sim.Relaxed = sc.Simulation.Relaxed
	sim.FastBuild = sc.Simulation.FastBuild
	for k, v := range sc.Simulation.ObjectiveOptions {
		sim.ObjectiveOptions[k] = v
	}
	for k, v := range sc.Simulation.SolveOptions {
		sim.SolveOptions[k] = v
	}

	es, err := energy.New(energy.Config{
		Groupings:  groupings,
		Simulation: sim,
		TimeIndex:  timeIndex(sc.Simulation.Timesteps, opts.TimeIndexStart, opts.TimeIndexStep),
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	regions := make(map[string]*energy.Region, len(sc.Regions))
	for _, rc := range sc.Regions {
		region := energy.NewRegion(rc.Name, rc.Geom)
		if rc.Code != "" {
			region.SetCode(rc.Code)
		}
		regions[rc.Name] = region
		es.AddRegion(region)
	}

	b := energy.NewBuilder(es)

	buses := make(map[string]*energy.Bus, len(sc.Buses))
	for _, bc := range sc.Buses {
		bus := b.Bus(bc.UID, bc.Carrier)
		buses[bc.UID] = bus
		if bc.Region != "" {
			regions[bc.Region].AddEntities([]energy.Entity{bus})
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordEntityAdded(string(energy.KindBus))
		}
	}

	for _, cc := range sc.Components {
		comp := b.Component(cc.UID, cc.Type)
		comp.Attrs = cc.Attrs
		comp.Connect(resolveBuses(buses, cc.Inputs), resolveBuses(buses, cc.Outputs))
		if cc.Region != "" {
			regions[cc.Region].AddEntities([]energy.Entity{comp})
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordEntityAdded(string(energy.KindComponent))
		}
	}

	opts.Logger.Info().
		Str("scenario", sc.Name).
		Int("buses", len(sc.Buses)).
		Int("components", len(sc.Components)).
		Int("groupings", len(sc.Groupings)).
		Msg("Energy system built")

	return es, nil
}

func resolveBuses(buses map[string]*energy.Bus, uids []string) []*energy.Bus {
	out := make([]*energy.Bus, 0, len(uids))
	for _, uid := range uids {
		out = append(out, buses[uid])
	}
	return out
}

func timestepRange(n int) []int {
	steps := make([]int, n)
	for i := range steps {
		steps[i] = i
	}
	return steps
}

func timeIndex(n int, start time.Time, step time.Duration) []time.Time {
	if start.IsZero() {
		return nil
	}
	if step == 0 {
		step = time.Hour
	}
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = start.Add(time.Duration(i) * step)
	}
	return idx
}

// ToRecords flattens a scenario into store records for persistence.
func (sc *Scenario) ToRecords() []*stores.EntityRecord {
	records := make([]*stores.EntityRecord, 0, len(sc.Buses)+len(sc.Components))
	for _, bus := range sc.Buses {
		records = append(records, &stores.EntityRecord{
			UID:     bus.UID,
			Kind:    string(energy.KindBus),
			Carrier: bus.Carrier,
			Region:  bus.Region,
		})
	}
	for _, comp := range sc.Components {
		records = append(records, &stores.EntityRecord{
			UID:    comp.UID,
			Kind:   string(energy.KindComponent),
			Type:   comp.Type,
			Region: comp.Region,
			Attrs:  comp.Attrs,
		})
	}
	return records
}
