package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/openwatt/openwatt/pkg/telemetry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db      *sql.DB
	path    string
	metrics *telemetry.Metrics
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Metrics, when set, counts store operations by outcome.
	Metrics *telemetry.Metrics
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path:    cfg.Path,
		metrics: cfg.Metrics,
	}, nil
}

// recordOp reports a store operation outcome when metrics are wired.
func (s *SQLiteStore) recordOp(operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordStoreOp(operation, status)
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Connection-level setting, the DSN flag alone is not enough for the
	// pure-Go driver.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// UpsertEntity inserts or replaces an entity record keyed by UID.
func (s *SQLiteStore) UpsertEntity(ctx context.Context, rec *EntityRecord) error {
	if rec.UID == "" {
		return fmt.Errorf("entity uid is required")
	}

	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal entity attrs: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO entities (uid, kind, type, carrier, region, attrs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			kind = excluded.kind,
			type = excluded.type,
			carrier = excluded.carrier,
			region = excluded.region,
			attrs = excluded.attrs,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.UID,
		rec.Kind,
		rec.Type,
		rec.Carrier,
		rec.Region,
		string(attrs),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	s.recordOp("upsert_entity", err)

	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}

	return nil
}

// GetEntity retrieves an entity by UID.
func (s *SQLiteStore) GetEntity(ctx context.Context, uid string) (*EntityRecord, error) {
	query := `
		SELECT uid, kind, type, carrier, region, attrs, created_at, updated_at
		FROM entities
		WHERE uid = ?
	`

	rec := &EntityRecord{}
	var attrs string
	err := s.db.QueryRowContext(ctx, query, uid).Scan(
		&rec.UID,
		&rec.Kind,
		&rec.Type,
		&rec.Carrier,
		&rec.Region,
		&attrs,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	s.recordOp("get_entity", err)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entity not found: %s", uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if attrs != "" && attrs != "null" {
		if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity attrs: %w", err)
		}
	}

	return rec, nil
}

// ListEntities returns all entities, optionally filtered by kind.
func (s *SQLiteStore) ListEntities(ctx context.Context, kind string) ([]*EntityRecord, error) {
	query := `
		SELECT uid, kind, type, carrier, region, attrs, created_at, updated_at
		FROM entities
	`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY uid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	s.recordOp("list_entities", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var records []*EntityRecord
	for rows.Next() {
		rec := &EntityRecord{}
		var attrs string
		if err := rows.Scan(
			&rec.UID,
			&rec.Kind,
			&rec.Type,
			&rec.Carrier,
			&rec.Region,
			&attrs,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entity attrs: %w", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}

	return records, nil
}

// DeleteEntity removes an entity and its series rows.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, uid string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE uid = ?", uid)
	s.recordOp("delete_entity", err)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}

// PutSeries inserts or replaces a named series for an entity.
func (s *SQLiteStore) PutSeries(ctx context.Context, rec *SeriesRecord) error {
	if rec.EntityUID == "" || rec.Name == "" {
		return fmt.Errorf("series entity uid and name are required")
	}

	values, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal series values: %w", err)
	}

	rec.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO series (entity_uid, name, values_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_uid, name) DO UPDATE SET
			values_json = excluded.values_json,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.EntityUID,
		rec.Name,
		string(values),
		rec.UpdatedAt,
	)
	s.recordOp("put_series", err)

	if err != nil {
		return fmt.Errorf("failed to put series: %w", err)
	}

	return nil
}

// GetSeries retrieves one series by entity UID and name.
func (s *SQLiteStore) GetSeries(ctx context.Context, entityUID, name string) (*SeriesRecord, error) {
	query := `
		SELECT entity_uid, name, values_json, updated_at
		FROM series
		WHERE entity_uid = ? AND name = ?
	`

	rec := &SeriesRecord{}
	var values string
	err := s.db.QueryRowContext(ctx, query, entityUID, name).Scan(
		&rec.EntityUID,
		&rec.Name,
		&values,
		&rec.UpdatedAt,
	)
	s.recordOp("get_series", err)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("series not found: %s/%s", entityUID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series values: %w", err)
	}

	return rec, nil
}

// ListSeries returns all series stored for an entity.
func (s *SQLiteStore) ListSeries(ctx context.Context, entityUID string) ([]*SeriesRecord, error) {
	query := `
		SELECT entity_uid, name, values_json, updated_at
		FROM series
		WHERE entity_uid = ?
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query, entityUID)
	s.recordOp("list_series", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var records []*SeriesRecord
	for rows.Next() {
		rec := &SeriesRecord{}
		var values string
		if err := rows.Scan(&rec.EntityUID, &rec.Name, &values, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal series values: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate series: %w", err)
	}

	return records, nil
}

// HealthCheck verifies the database is accessible.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
