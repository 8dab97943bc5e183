package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/openwatt/openwatt/pkg/energy"
)

// DefaultDir is the snapshot directory under the user's home.
const DefaultDir = ".openwatt/dumps"

// DefaultFilename is the snapshot file name used when none is given.
const DefaultFilename = "es_dump.watt"

// State is the serialized form of an energy system.
type State struct {
	DumpedAt   time.Time          `json:"dumped_at"`
	Entities   []EntityState      `json:"entities"`
	Regions    []RegionState      `json:"regions,omitempty"`
	Simulation *energy.Simulation `json:"simulation,omitempty"`
	TimeIndex  []time.Time        `json:"time_index,omitempty"`
	Results    energy.Results     `json:"results,omitempty"`
}

// EntityState is the serialized form of one entity.
type EntityState struct {
	UID     string         `json:"uid"`
	Kind    string         `json:"kind"`
	Carrier string         `json:"carrier,omitempty"`
	Type    string         `json:"type,omitempty"`
	Inputs  []string       `json:"inputs,omitempty"`
	Outputs []string       `json:"outputs,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Regions []string       `json:"regions,omitempty"`
}

// RegionState is the serialized form of one region.
type RegionState struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
	Geom string `json:"geom,omitempty"`
}

// RestoreOptions tune a restore.
type RestoreOptions struct {
	// Groupings are re-applied to the restored entities; they cannot be
	// read back from the snapshot.
	Groupings []energy.Grouping

	// Logger receives restore events.
	Logger zerolog.Logger
}

// DefaultPath returns the default snapshot file path under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultDir, DefaultFilename), nil
}

// Capture serializes the system into a State.
func Capture(es *energy.EnergySystem) *State {
	st := &State{
		DumpedAt:   time.Now().UTC(),
		Simulation: es.Simulation(),
		TimeIndex:  es.TimeIndex(),
		Results:    es.Results(),
	}

	for _, r := range es.Regions() {
		st.Regions = append(st.Regions, RegionState{
			Name: r.Name,
			Code: r.Code(),
			Geom: r.Geom,
		})
	}

	for _, e := range es.Entities() {
		est := EntityState{
			UID:  e.UID(),
			Kind: string(e.Kind()),
		}
		for _, r := range e.Regions() {
			est.Regions = append(est.Regions, r.Name)
		}
		switch v := e.(type) {
		case *energy.Bus:
			est.Carrier = v.Carrier
		case *energy.Component:
			est.Type = v.Type
			est.Attrs = v.Attrs
			for _, in := range v.Inputs {
				est.Inputs = append(est.Inputs, in.UID())
			}
			for _, out := range v.Outputs {
				est.Outputs = append(est.Outputs, out.UID())
			}
		}
		st.Entities = append(st.Entities, est)
	}

	return st
}

// Dump writes the system state to path. An empty path selects the
// default location, creating the dump directory if necessary.
func Dump(es *energy.EnergySystem, path string, logger zerolog.Logger) (string, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}

	data, err := json.MarshalIndent(Capture(es), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize system: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("entities", len(es.Entities())).
		Msg("System dumped")

	return path, nil
}

// Load reads a snapshot file into a State without touching any system.
func Load(path string) (*State, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &st, nil
}

// Restore reads a snapshot and overwrites the container's contents with
// it. Whatever the container held before is discarded. An empty path
// selects the default location.
func Restore(es *energy.EnergySystem, path string, opts RestoreOptions) error {
	st, err := Load(path)
	if err != nil {
		return err
	}

	regions := make(map[string]*energy.Region, len(st.Regions))
	regionList := make([]*energy.Region, 0, len(st.Regions))
	for _, rs := range st.Regions {
		r := energy.NewRegion(rs.Name, rs.Geom)
		if rs.Code != "" {
			r.SetCode(rs.Code)
		}
		regions[rs.Name] = r
		regionList = append(regionList, r)
	}

	// Buses first so component connections resolve.
	buses := make(map[string]*energy.Bus, len(st.Entities))
	entities := make([]energy.Entity, 0, len(st.Entities))
	for _, est := range st.Entities {
		if est.Kind != string(energy.KindBus) {
			continue
		}
		bus := energy.NewBus(nil, est.UID, est.Carrier)
		buses[est.UID] = bus
	}
	for _, est := range st.Entities {
		var e energy.Entity
		switch est.Kind {
		case string(energy.KindBus):
			e = buses[est.UID]
		case string(energy.KindComponent):
			comp := energy.NewComponent(nil, est.UID, est.Type)
			comp.Attrs = est.Attrs
			comp.Connect(resolve(buses, est.Inputs), resolve(buses, est.Outputs))
			e = comp
		default:
			return fmt.Errorf("snapshot holds unknown entity kind %q", est.Kind)
		}
		for _, name := range est.Regions {
			if r, ok := regions[name]; ok {
				r.AddEntities([]energy.Entity{e})
			}
		}
		entities = append(entities, e)
	}

	if err := es.Adopt(energy.Config{
		Entities:   entities,
		Groupings:  opts.Groupings,
		Simulation: st.Simulation,
		Regions:    regionList,
		TimeIndex:  st.TimeIndex,
		Logger:     opts.Logger,
	}); err != nil {
		return err
	}
	es.SetResults(st.Results)

	opts.Logger.Info().
		Int("entities", len(entities)).
		Msg("System restored")

	return nil
}

func resolve(buses map[string]*energy.Bus, uids []string) []*energy.Bus {
	out := make([]*energy.Bus, 0, len(uids))
	for _, uid := range uids {
		if b, ok := buses[uid]; ok {
			out = append(out, b)
		}
	}
	return out
}
