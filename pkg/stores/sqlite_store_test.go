package stores

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openwatt/openwatt/pkg/telemetry"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tables := []string{"entities", "series"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestStoreRecordsMetrics tests operation counting by outcome
func TestStoreRecordsMetrics(t *testing.T) {
	cfg := telemetry.DefaultConfig().Metrics
	cfg.Enabled = true
	m, err := telemetry.NewMetrics(cfg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	store, err := NewSQLiteStore(Config{
		Path:    ":memory:",
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	rec := &EntityRecord{UID: "bus_el", Kind: "bus", Carrier: "electricity"}
	if err := store.UpsertEntity(ctx, rec); err != nil {
		t.Fatalf("failed to upsert entity: %v", err)
	}
	if _, err := store.GetEntity(ctx, "bus_el"); err != nil {
		t.Fatalf("failed to get entity: %v", err)
	}
	// Missing row counts as an error outcome.
	if _, err := store.GetEntity(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing entity")
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()

	if !strings.Contains(body, `openwatt_store_operations_total{operation="upsert_entity",status="success"} 1`) {
		t.Errorf("expected upsert success counter in scrape, got:\n%s", body)
	}
	if !strings.Contains(body, `openwatt_store_operations_total{operation="get_entity",status="success"} 1`) {
		t.Errorf("expected get success counter in scrape, got:\n%s", body)
	}
	if !strings.Contains(body, `openwatt_store_operations_total{operation="get_entity",status="error"} 1`) {
		t.Errorf("expected get error counter in scrape, got:\n%s", body)
	}
}

// TestEntityCRUD tests entity record operations
func TestEntityCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rec := &EntityRecord{
		UID:     "chp_gas",
		Kind:    "component",
		Type:    "transformer",
		Carrier: "gas",
		Region:  "lower_saxony",
		Attrs: map[string]any{
			"eta_el": 0.3,
			"eta_th": 0.5,
		},
	}

	if err := store.UpsertEntity(ctx, rec); err != nil {
		t.Fatalf("failed to upsert entity: %v", err)
	}

	retrieved, err := store.GetEntity(ctx, "chp_gas")
	if err != nil {
		t.Fatalf("failed to get entity: %v", err)
	}

	if retrieved.UID != rec.UID {
		t.Errorf("expected UID %s, got %s", rec.UID, retrieved.UID)
	}
	if retrieved.Kind != rec.Kind {
		t.Errorf("expected Kind %s, got %s", rec.Kind, retrieved.Kind)
	}
	if retrieved.Carrier != rec.Carrier {
		t.Errorf("expected Carrier %s, got %s", rec.Carrier, retrieved.Carrier)
	}
	if got := retrieved.Attrs["eta_el"]; got != 0.3 {
		t.Errorf("expected eta_el 0.3, got %v", got)
	}

	// Upserting the same UID replaces the record
	rec.Carrier = "biogas"
	if err := store.UpsertEntity(ctx, rec); err != nil {
		t.Fatalf("failed to upsert entity again: %v", err)
	}

	updated, err := store.GetEntity(ctx, "chp_gas")
	if err != nil {
		t.Fatalf("failed to get updated entity: %v", err)
	}
	if updated.Carrier != "biogas" {
		t.Errorf("expected updated carrier biogas, got %s", updated.Carrier)
	}

	if err := store.DeleteEntity(ctx, "chp_gas"); err != nil {
		t.Fatalf("failed to delete entity: %v", err)
	}

	if _, err := store.GetEntity(ctx, "chp_gas"); err == nil {
		t.Error("expected error getting deleted entity, got nil")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got: %v", err)
	}
}

// TestListEntities tests listing with and without a kind filter
func TestListEntities(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	records := []*EntityRecord{
		{UID: "bus_el", Kind: "bus", Carrier: "electricity"},
		{UID: "bus_gas", Kind: "bus", Carrier: "gas"},
		{UID: "demand_el", Kind: "component", Type: "sink"},
	}
	for _, rec := range records {
		if err := store.UpsertEntity(ctx, rec); err != nil {
			t.Fatalf("failed to upsert %s: %v", rec.UID, err)
		}
	}

	all, err := store.ListEntities(ctx, "")
	if err != nil {
		t.Fatalf("failed to list entities: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 entities, got %d", len(all))
	}

	buses, err := store.ListEntities(ctx, "bus")
	if err != nil {
		t.Fatalf("failed to list buses: %v", err)
	}
	if len(buses) != 2 {
		t.Errorf("expected 2 buses, got %d", len(buses))
	}
	for _, rec := range buses {
		if rec.Kind != "bus" {
			t.Errorf("expected kind bus, got %s", rec.Kind)
		}
	}
}

// TestSeriesRoundTrip tests series storage operations
func TestSeriesRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if err := store.UpsertEntity(ctx, &EntityRecord{UID: "pv_south", Kind: "component", Type: "source"}); err != nil {
		t.Fatalf("failed to upsert entity: %v", err)
	}

	rec := &SeriesRecord{
		EntityUID: "pv_south",
		Name:      "availability",
		Values:    []float64{0, 0.2, 0.8, 1, 0.6, 0},
	}
	if err := store.PutSeries(ctx, rec); err != nil {
		t.Fatalf("failed to put series: %v", err)
	}

	retrieved, err := store.GetSeries(ctx, "pv_south", "availability")
	if err != nil {
		t.Fatalf("failed to get series: %v", err)
	}
	if len(retrieved.Values) != 6 {
		t.Fatalf("expected 6 values, got %d", len(retrieved.Values))
	}
	if retrieved.Values[2] != 0.8 {
		t.Errorf("expected value 0.8 at index 2, got %v", retrieved.Values[2])
	}

	// Replacing an existing series overwrites the values
	rec.Values = []float64{1, 1, 1}
	if err := store.PutSeries(ctx, rec); err != nil {
		t.Fatalf("failed to replace series: %v", err)
	}
	replaced, err := store.GetSeries(ctx, "pv_south", "availability")
	if err != nil {
		t.Fatalf("failed to get replaced series: %v", err)
	}
	if len(replaced.Values) != 3 {
		t.Errorf("expected 3 values after replace, got %d", len(replaced.Values))
	}

	if err := store.PutSeries(ctx, &SeriesRecord{
		EntityUID: "pv_south",
		Name:      "marginal_cost",
		Values:    []float64{12.5, 12.5, 13.1},
	}); err != nil {
		t.Fatalf("failed to put second series: %v", err)
	}

	all, err := store.ListSeries(ctx, "pv_south")
	if err != nil {
		t.Fatalf("failed to list series: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 series, got %d", len(all))
	}

	// Deleting the entity cascades to its series
	if err := store.DeleteEntity(ctx, "pv_south"); err != nil {
		t.Fatalf("failed to delete entity: %v", err)
	}
	remaining, err := store.ListSeries(ctx, "pv_south")
	if err != nil {
		t.Fatalf("failed to list series after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected 0 series after entity delete, got %d", len(remaining))
	}
}
