package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:diffcalc.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/diffcalc?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables if missing. Exposed so tests can build
// a throwaway sqlite store.
func EnsureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS beatmaps (
  beatmap_id INTEGER PRIMARY KEY,
  ruleset_id INTEGER NOT NULL DEFAULT 0,
  approved INTEGER NOT NULL DEFAULT 0,
  hit_objects INTEGER NOT NULL DEFAULT 0,
  hit_objects_json TEXT NOT NULL DEFAULT '[]',
  approach_rate REAL NOT NULL DEFAULT 0,
  overall_difficulty REAL NOT NULL DEFAULT 0,
  drain_rate REAL NOT NULL DEFAULT 0,
  circle_size REAL NOT NULL DEFAULT 0,
  beat_length REAL NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS beatmap_difficulty (
  beatmap_id INTEGER NOT NULL,
  ruleset_id INTEGER NOT NULL,
  mods INTEGER NOT NULL,
  star_rating REAL NOT NULL DEFAULT 0,
  diff_aim REAL,
  diff_speed REAL,
  diff_overall REAL,
  diff_approach REAL,
  diff_max_combo REAL,
  diff_strain REAL,
  diff_hit_window_300 REAL,
  diff_score_multiplier REAL,
  diff_flashlight REAL,
  diff_slider_factor REAL,
  diff_speed_note_count REAL,
  PRIMARY KEY (beatmap_id, ruleset_id, mods)
);

CREATE TABLE IF NOT EXISTS beatmap_scoring_attribs (
  beatmap_id INTEGER NOT NULL,
  ruleset_id INTEGER NOT NULL,
  legacy_accuracy_score INTEGER NOT NULL DEFAULT 0,
  legacy_combo_score INTEGER NOT NULL DEFAULT 0,
  legacy_bonus_score_ratio REAL NOT NULL DEFAULT 0,
  legacy_bonus_score INTEGER NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (beatmap_id, ruleset_id)
);

CREATE TABLE IF NOT EXISTS beatmap_metadata (
  beatmap_id INTEGER PRIMARY KEY,
  rating REAL NOT NULL DEFAULT 0,
  approach_rate REAL NOT NULL DEFAULT 0,
  overall_difficulty REAL NOT NULL DEFAULT 0,
  drain_rate REAL NOT NULL DEFAULT 0,
  circle_size REAL NOT NULL DEFAULT 0,
  bpm REAL NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS beatmaps (
  beatmap_id BIGINT PRIMARY KEY,
  ruleset_id INTEGER NOT NULL DEFAULT 0,
  approved INTEGER NOT NULL DEFAULT 0,
  hit_objects INTEGER NOT NULL DEFAULT 0,
  hit_objects_json TEXT NOT NULL DEFAULT '[]',
  approach_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  overall_difficulty DOUBLE PRECISION NOT NULL DEFAULT 0,
  drain_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  circle_size DOUBLE PRECISION NOT NULL DEFAULT 0,
  beat_length DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS beatmap_difficulty (
  beatmap_id BIGINT NOT NULL,
  ruleset_id INTEGER NOT NULL,
  mods BIGINT NOT NULL,
  star_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
  diff_aim DOUBLE PRECISION,
  diff_speed DOUBLE PRECISION,
  diff_overall DOUBLE PRECISION,
  diff_approach DOUBLE PRECISION,
  diff_max_combo DOUBLE PRECISION,
  diff_strain DOUBLE PRECISION,
  diff_hit_window_300 DOUBLE PRECISION,
  diff_score_multiplier DOUBLE PRECISION,
  diff_flashlight DOUBLE PRECISION,
  diff_slider_factor DOUBLE PRECISION,
  diff_speed_note_count DOUBLE PRECISION,
  PRIMARY KEY (beatmap_id, ruleset_id, mods)
);

CREATE TABLE IF NOT EXISTS beatmap_scoring_attribs (
  beatmap_id BIGINT NOT NULL,
  ruleset_id INTEGER NOT NULL,
  legacy_accuracy_score BIGINT NOT NULL DEFAULT 0,
  legacy_combo_score BIGINT NOT NULL DEFAULT 0,
  legacy_bonus_score_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
  legacy_bonus_score BIGINT NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (beatmap_id, ruleset_id)
);

CREATE TABLE IF NOT EXISTS beatmap_metadata (
  beatmap_id BIGINT PRIMARY KEY,
  rating DOUBLE PRECISION NOT NULL DEFAULT 0,
  approach_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  overall_difficulty DOUBLE PRECISION NOT NULL DEFAULT 0,
  drain_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  circle_size DOUBLE PRECISION NOT NULL DEFAULT 0,
  bpm DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_combo INTEGER NOT NULL DEFAULT 0
);
`
