package solver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openwatt/openwatt/pkg/energy"
	"github.com/openwatt/openwatt/pkg/telemetry"
)

func newTestTelemetry(t *testing.T) *telemetry.Telemetry {
	t.Helper()

	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}
	return tel
}

func TestRunnerStoresResults(t *testing.T) {
	es, b := newSolveSystem(t, 2)

	bus := b.Bus("bus_el", "electricity")
	gen := b.Component("gen", "source")
	gen.Connect(nil, []*energy.Bus{bus})
	sink := b.Component("demand", "sink")
	sink.Attrs = map[string]any{"demand": 2}
	sink.Connect([]*energy.Bus{bus}, nil)

	runner := NewRunner(nil, newTestTelemetry(t))

	res, err := runner.Run(context.Background(), es)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.Solver != energy.DefaultSolver {
		t.Errorf("expected solver %s, got %s", energy.DefaultSolver, res.Solver)
	}
	if es.Results() == nil {
		t.Fatal("expected results stored on the system")
	}
	if got := es.Results()["gen"][1]; got != 2 {
		t.Errorf("expected gen output 2, got %v", got)
	}
}

func TestRunnerUnknownSolver(t *testing.T) {
	es, _ := newSolveSystem(t, 1)
	es.Simulation().Solver = "cplex"

	runner := NewRunner(nil, newTestTelemetry(t))

	if _, err := runner.Run(context.Background(), es); err == nil {
		t.Error("expected error for unknown solver, got nil")
	}
}

func TestRunnerNoSimulation(t *testing.T) {
	es, err := energy.New(energy.Config{})
	if err != nil {
		t.Fatalf("failed to create system: %v", err)
	}

	runner := NewRunner(nil, newTestTelemetry(t))

	if _, err := runner.Run(context.Background(), es); err == nil {
		t.Error("expected error for missing simulation, got nil")
	}
}

func TestRunnerRecordsMetrics(t *testing.T) {
	es, b := newSolveSystem(t, 2)

	bus := b.Bus("bus_el", "electricity")
	gen := b.Component("gen", "source")
	gen.Connect(nil, []*energy.Bus{bus})

	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Metrics.Enabled = true
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}

	runner := NewRunner(nil, tel)
	if _, err := runner.Run(context.Background(), es); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	rr := httptest.NewRecorder()
	tel.Metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()

	if !strings.Contains(body, "openwatt_group_forces_total 1") {
		t.Errorf("expected one group force in scrape, got:\n%s", body)
	}
	if !strings.Contains(body, "openwatt_group_buckets 2") {
		t.Errorf("expected bucket gauge 2 in scrape, got:\n%s", body)
	}
	if !strings.Contains(body, `openwatt_solver_runs_total{solver="glpk",status="success"} 1`) {
		t.Errorf("expected successful solver run in scrape, got:\n%s", body)
	}
}

func TestRunnerForcesGroupsFirst(t *testing.T) {
	boom := energy.NewGrouping("broken", func(energy.Entity) (energy.GroupKeys, error) {
		return energy.NoKeys(), energy.NewGroupingError("broken rule", nil)
	})

	sim, err := energy.NewSimulation([]int{0})
	if err != nil {
		t.Fatalf("failed to create simulation: %v", err)
	}
	es, err := energy.New(energy.Config{Simulation: sim, Groupings: []energy.Grouping{boom}})
	if err != nil {
		t.Fatalf("failed to create system: %v", err)
	}

	energy.NewBus(es, "bus_el", "electricity")

	runner := NewRunner(nil, newTestTelemetry(t))

	_, err = runner.Run(context.Background(), es)
	if err == nil {
		t.Fatal("expected grouping error to fail the run, got nil")
	}
	if !energy.IsGroupingError(err) {
		t.Errorf("expected a grouping-classified error, got: %v", err)
	}
}
