package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createTasksQuery := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		required_capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'normal',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		window_start TIMESTAMPTZ,
		window_end TIMESTAMPTZ
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'available',
		type TEXT NOT NULL DEFAULT 'car'
	);
	`

	createHubsQuery := `
	CREATE TABLE IF NOT EXISTS hubs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	migrateGeocodeCacheQuery := `
	ALTER TABLE geocode_cache
	ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now();
	`

	createTripCacheQuery := `
	CREATE TABLE IF NOT EXISTS trip_cache (
		key TEXT PRIMARY KEY,
		ordered_indices TEXT NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_tasks_status_created_at
	ON tasks(status, created_at);
	`

	statements := []string{
		createTasksQuery,
		createVehiclesQuery,
		createHubsQuery,
		createGeocodeCacheQuery,
		migrateGeocodeCacheQuery,
		createTripCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the database with tasks, vehicles and hubs from a JSON seed
// file. Existing rows with the same IDs are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	data, err := LoadSeed(jsonPath, time.Now())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taskStmt, err := tx.PrepareContext(ctx, upsertTaskQuery)
	if err != nil {
		return fmt.Errorf("seed: prepare task insert: %w", err)
	}
	defer taskStmt.Close()

	for _, t := range data.Tasks {
		if _, err := taskStmt.ExecContext(ctx, taskArgs(t)...); err != nil {
			return fmt.Errorf("seed: insert task id=%s: %w", t.ID, err)
		}
	}

	vehicleStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vehicles (id, lat, lng, capacity, status, type)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		capacity = EXCLUDED.capacity,
		status = EXCLUDED.status,
		type = EXCLUDED.type;
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare vehicle insert: %w", err)
	}
	defer vehicleStmt.Close()

	for _, v := range data.Vehicles {
		if _, err := vehicleStmt.ExecContext(ctx, v.ID, v.Location.Lat, v.Location.Lng, v.Capacity, string(v.Status), string(v.Type)); err != nil {
			return fmt.Errorf("seed: insert vehicle id=%s: %w", v.ID, err)
		}
	}

	for _, h := range data.Hubs {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO hubs (id, name, lat, lng)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng;
		`, h.ID, h.Name, h.Location.Lat, h.Location.Lng); err != nil {
			return fmt.Errorf("seed: insert hub id=%s: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
