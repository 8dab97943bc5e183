package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validScenarioYAML = `
name: test-scenario
description: minimal two-node system
simulation:
  timesteps: 4
regions:
  - name: lower_saxony
buses:
  - uid: bus_el
    carrier: electricity
    region: lower_saxony
components:
  - uid: demand_el
    type: sink
    inputs: [bus_el]
    attrs:
      annual_demand: 3000
groupings:
  - name: by_carrier
    rule: |
      def key(entity):
          if entity.kind == "bus":
              return entity.carrier
          return None
`

func TestParseValidScenario(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	sc, err := p.Parse(ctx, []byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("failed to parse scenario: %v", err)
	}

	if sc.Name != "test-scenario" {
		t.Errorf("expected name test-scenario, got %s", sc.Name)
	}
	if sc.Simulation.Timesteps != 4 {
		t.Errorf("expected 4 timesteps, got %d", sc.Simulation.Timesteps)
	}
	if len(sc.Buses) != 1 || sc.Buses[0].Carrier != "electricity" {
		t.Errorf("unexpected buses: %+v", sc.Buses)
	}
	if len(sc.Components) != 1 || sc.Components[0].Type != "sink" {
		t.Errorf("unexpected components: %+v", sc.Components)
	}
	if got := sc.Components[0].Attrs["annual_demand"]; got != 3000 {
		t.Errorf("expected annual_demand 3000, got %v", got)
	}
}

func TestParseSimulationOptions(t *testing.T) {
	p := NewParser()

	yaml := strings.Replace(validScenarioYAML, "  timesteps: 4",
		`  timesteps: 4
  fast_build: true
  objective_options:
    sense: minimize`, 1)

	sc, err := p.Parse(context.Background(), []byte(yaml))
	if err != nil {
		t.Fatalf("failed to parse scenario: %v", err)
	}

	if !sc.Simulation.FastBuild {
		t.Error("expected fast_build true")
	}
	if got := sc.Simulation.ObjectiveOptions["sense"]; got != "minimize" {
		t.Errorf("expected objective option sense=minimize, got %v", got)
	}
}

func TestParseFile(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(validScenarioYAML), 0o644); err != nil {
		t.Fatalf("failed to write scenario file: %v", err)
	}

	sc, err := p.ParseFile(ctx, path)
	if err != nil {
		t.Fatalf("failed to parse scenario file: %v", err)
	}
	if sc.Name != "test-scenario" {
		t.Errorf("expected name test-scenario, got %s", sc.Name)
	}

	if _, err := p.ParseFile(ctx, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	p := NewParser()

	bad := strings.Replace(validScenarioYAML, "description:", "descriptionn:", 1)
	if _, err := p.Parse(context.Background(), []byte(bad)); err == nil {
		t.Error("expected error for unknown field, got nil")
	}
}

func TestValidateRejections(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{
			name:    "missing buses",
			mutate:  func(sc *Scenario) { sc.Buses = nil },
			wantErr: "validation",
		},
		{
			name:    "zero timesteps",
			mutate:  func(sc *Scenario) { sc.Simulation.Timesteps = 0 },
			wantErr: "validation",
		},
		{
			name: "unknown input bus",
			mutate: func(sc *Scenario) {
				sc.Components[0].Inputs = []string{"bus_missing"}
			},
			wantErr: "unknown bus",
		},
		{
			name: "unknown region",
			mutate: func(sc *Scenario) {
				sc.Buses[0].Region = "atlantis"
			},
			wantErr: "unknown region",
		},
		{
			name: "reserved grouping name",
			mutate: func(sc *Scenario) {
				sc.Groupings[0].Name = "uid"
			},
			wantErr: "reserved",
		},
		{
			name: "duplicate grouping name",
			mutate: func(sc *Scenario) {
				sc.Groupings = append(sc.Groupings, sc.Groupings[0])
			},
			wantErr: "declared twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := p.Parse(ctx, []byte(validScenarioYAML))
			if err != nil {
				t.Fatalf("failed to parse base scenario: %v", err)
			}

			tt.mutate(sc)
			err = p.Validate(ctx, sc)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestDuplicateUIDsAllowed(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	sc, err := p.Parse(ctx, []byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("failed to parse base scenario: %v", err)
	}

	// Re-declaring a UID is not an error: the later declaration replaces
	// the earlier one when the system is built.
	sc.Buses = append(sc.Buses, BusConfig{UID: "bus_el", Carrier: "electricity"})
	if err := p.Validate(ctx, sc); err != nil {
		t.Fatalf("expected duplicate uid to validate, got: %v", err)
	}
}

func TestToRecords(t *testing.T) {
	p := NewParser()

	sc, err := p.Parse(context.Background(), []byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("failed to parse scenario: %v", err)
	}

	records := sc.ToRecords()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].UID != "bus_el" || records[0].Kind != "bus" {
		t.Errorf("unexpected bus record: %+v", records[0])
	}
	if records[1].UID != "demand_el" || records[1].Type != "sink" {
		t.Errorf("unexpected component record: %+v", records[1])
	}
}
