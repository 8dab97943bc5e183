package stores

import (
	"context"
	"time"
)

// EntityRecord is the persisted form of a system entity. Structured
// attributes beyond the fixed columns live in Attrs as a JSON object.
type EntityRecord struct {
	UID       string         `json:"uid"`
	Kind      string         `json:"kind"`
	Type      string         `json:"type,omitempty"`
	Carrier   string         `json:"carrier,omitempty"`
	Region    string         `json:"region,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SeriesRecord holds one named timeseries attached to an entity, for
// example a demand profile or a feed-in availability curve.
type SeriesRecord struct {
	EntityUID string    `json:"entity_uid"`
	Name      string    `json:"name"`
	Values    []float64 `json:"values"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence interface for entity and series data.
type Store interface {
	// Init opens the underlying database and prepares it for use.
	Init(ctx context.Context) error

	// Close releases the store's resources.
	Close() error

	// Migrate applies any pending schema migrations.
	Migrate(ctx context.Context) error

	// UpsertEntity inserts or replaces an entity record keyed by UID.
	UpsertEntity(ctx context.Context, rec *EntityRecord) error

	// GetEntity fetches one entity by UID.
	GetEntity(ctx context.Context, uid string) (*EntityRecord, error)

	// ListEntities returns all entities, optionally filtered by kind.
	// An empty kind matches everything.
	ListEntities(ctx context.Context, kind string) ([]*EntityRecord, error)

	// DeleteEntity removes an entity and its series.
	DeleteEntity(ctx context.Context, uid string) error

	// PutSeries inserts or replaces a named series for an entity.
	PutSeries(ctx context.Context, rec *SeriesRecord) error

	// GetSeries fetches one series by entity UID and name.
	GetSeries(ctx context.Context, entityUID, name string) (*SeriesRecord, error)

	// ListSeries returns all series stored for an entity.
	ListSeries(ctx context.Context, entityUID string) ([]*SeriesRecord, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}
