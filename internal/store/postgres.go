// Package store persists readings to the normalized Postgres schema shared
// with the archival and dashboard jobs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a read query matches no rows.
var ErrNotFound = errors.New("no recordings found")

// schemaStatements is the idempotent DDL applied on startup. Every dimension
// table carries a uniqueness constraint on its natural key; the loader's
// conflict-safe inserts depend on them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS country (
		country_id   SERIAL PRIMARY KEY,
		country_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS botanist (
		botanist_id   SERIAL PRIMARY KEY,
		botanist_name TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plant (
		plant_id        SERIAL PRIMARY KEY,
		common_name     TEXT NOT NULL UNIQUE,
		scientific_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plant_image (
		image_id     SERIAL PRIMARY KEY,
		licence      INTEGER NOT NULL UNIQUE,
		licence_name TEXT NOT NULL,
		licence_url  TEXT NOT NULL,
		thumbnail    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS origin_location (
		origin_location_id SERIAL PRIMARY KEY,
		origin_city_name   TEXT NOT NULL,
		country_id         INTEGER NOT NULL REFERENCES country (country_id),
		longitude          DOUBLE PRECISION,
		latitude           DOUBLE PRECISION,
		UNIQUE (origin_city_name, country_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recording (
		plant_id           INTEGER NOT NULL REFERENCES plant (plant_id),
		botanist_id        INTEGER NOT NULL REFERENCES botanist (botanist_id),
		origin_location_id INTEGER NOT NULL REFERENCES origin_location (origin_location_id),
		last_watered       TIMESTAMP,
		image_id           INTEGER NOT NULL REFERENCES plant_image (image_id),
		recording_taken    TIMESTAMP,
		soil_moisture      DOUBLE PRECISION,
		temperature        DOUBLE PRECISION
	)`,
}

// Store wraps the connection pool shared by the loader, the read API, and
// the archiver.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Println("store: connected to database")
	return &Store{pool: pool}, nil
}

// EnsureSchema applies the DDL; safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping reports database reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pool for jobs that manage their own
// transactions, such as the archiver.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the pool. Called on shutdown.
func (s *Store) Close() {
	s.pool.Close()
}
