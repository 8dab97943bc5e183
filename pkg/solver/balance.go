package solver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/openwatt/openwatt/pkg/energy"
)

// BalanceBackend is the built-in dispatch backend. It serves every bus
// balance per timestep with a greedy merit-order dispatch: sinks set the
// demand, producers are dispatched in ascending marginal cost, and
// transformers forward their fuel demand to their input buses. It is
// deterministic and dependency-free, intended as the baseline backend
// and as the stand-in behind the default solver name.
//
// Component attributes read by the backend:
//
//	demand         sink draw per timestep (scalar or series)
//	capacity       producer output limit per timestep (scalar or series)
//	marginal_cost  dispatch order (scalar, lower first)
//	efficiency     output per unit of input for transformers (scalar)
type BalanceBackend struct{}

// NewBalanceBackend creates the built-in dispatch backend.
func NewBalanceBackend() *BalanceBackend {
	return &BalanceBackend{}
}

// Name implements Backend.
func (b *BalanceBackend) Name() string { return "balance" }

const balanceEps = 1e-9

// Solve implements Backend.
func (b *BalanceBackend) Solve(ctx context.Context, es *energy.EnergySystem, sim *energy.Simulation) (energy.Results, error) {
	if sim == nil || len(sim.Timesteps) == 0 {
		return nil, energy.NewSolverError("no timesteps to solve", nil).WithOperation("solve")
	}

	var buses []*energy.Bus
	var comps []*energy.Component
	for _, e := range es.Entities() {
		switch v := e.(type) {
		case *energy.Bus:
			buses = append(buses, v)
		case *energy.Component:
			comps = append(comps, v)
		}
	}

	results := make(energy.Results)
	for _, e := range es.Entities() {
		results[e.UID()] = make([]float64, len(sim.Timesteps))
	}

	producers := producersByBus(comps)

	for ti := range sim.Timesteps {
		if err := ctx.Err(); err != nil {
			return nil, energy.NewSolverError("solve canceled", err).WithOperation("solve")
		}

		demand := make(map[string]float64, len(buses))
		served := make(map[string]float64, len(buses))
		dispatched := make(map[string]float64, len(comps))

		// Sinks set the initial demand on their input buses.
		for _, c := range comps {
			draw := attrNumAt(c.Attrs, "demand", ti, 0)
			if draw <= 0 {
				continue
			}
			results[c.UID()][ti] = draw
			for _, in := range c.Inputs {
				demand[in.UID()] += draw / float64(len(c.Inputs))
			}
		}

		// Dispatch passes: transformers forward demand upstream, so one
		// pass per bus bounds the chain length in an acyclic system.
		for pass := 0; pass <= len(buses); pass++ {
			progress := false
			for _, bus := range buses {
				deficit := demand[bus.UID()] - served[bus.UID()]
				if deficit <= balanceEps {
					continue
				}
				for _, p := range producers[bus.UID()] {
					avail := attrNumAt(p.Attrs, "capacity", ti, math.Inf(1)) - dispatched[p.UID()]
					take := math.Min(avail, deficit)
					if take <= balanceEps {
						continue
					}
					dispatched[p.UID()] += take
					served[bus.UID()] += take
					deficit -= take
					progress = true

					// Fuel demand of a transformer lands on its inputs.
					if len(p.Inputs) > 0 {
						eff := attrNum(p.Attrs, "efficiency", 1)
						fuel := take / eff / float64(len(p.Inputs))
						for _, in := range p.Inputs {
							demand[in.UID()] += fuel
						}
					}
					if deficit <= balanceEps {
						break
					}
				}
			}
			if !progress {
				break
			}
		}

		for _, bus := range buses {
			deficit := demand[bus.UID()] - served[bus.UID()]
			if deficit > balanceEps {
				return nil, energy.NewSolverError(
					fmt.Sprintf("unmet demand %.3f on bus %s at timestep %d", deficit, bus.UID(), sim.Timesteps[ti]),
					nil,
				).WithEntity(bus.UID()).WithOperation("solve")
			}
			results[bus.UID()][ti] = served[bus.UID()]
		}
		for _, c := range comps {
			if out, ok := dispatched[c.UID()]; ok {
				results[c.UID()][ti] = out
			}
		}
	}

	return results, nil
}

// producersByBus indexes components by the buses they feed, in merit
// order: ascending marginal cost, uid as the tie-breaker.
func producersByBus(comps []*energy.Component) map[string][]*energy.Component {
	byBus := make(map[string][]*energy.Component)
	for _, c := range comps {
		for _, out := range c.Outputs {
			byBus[out.UID()] = append(byBus[out.UID()], c)
		}
	}
	for _, list := range byBus {
		sort.SliceStable(list, func(i, j int) bool {
			ci := attrNum(list[i].Attrs, "marginal_cost", 0)
			cj := attrNum(list[j].Attrs, "marginal_cost", 0)
			if ci != cj {
				return ci < cj
			}
			return list[i].UID() < list[j].UID()
		})
	}
	return byBus
}

// attrNumAt reads a numeric attribute that may be a scalar or a series
// indexed by timestep.
func attrNumAt(attrs map[string]any, key string, ti int, def float64) float64 {
	v, ok := attrs[key]
	if !ok {
		return def
	}
	if list, ok := v.([]any); ok {
		if ti >= len(list) {
			return def
		}
		if n, ok := toFloat(list[ti]); ok {
			return n
		}
		return def
	}
	if n, ok := toFloat(v); ok {
		return n
	}
	return def
}

// attrNum reads a scalar numeric attribute.
func attrNum(attrs map[string]any, key string, def float64) float64 {
	if n, ok := toFloat(attrs[key]); ok {
		return n
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
