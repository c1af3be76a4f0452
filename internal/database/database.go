// Package database provides database access for the gateway call audit trail
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Wrap adopts an existing connection pool
func Wrap(db *sql.DB) *DB {
	return &DB{DB: db}
}

// Schema creates the tables used by the relay
const Schema = `
	-- One row per Execute call
	CREATE TABLE IF NOT EXISTS gateway_calls (
		id UUID PRIMARY KEY,
		method VARCHAR(255) NOT NULL,
		endpoint TEXT NOT NULL,
		format VARCHAR(8) NOT NULL,
		sign_method VARCHAR(8) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		error_code INTEGER,
		error_message TEXT,
		started_at TIMESTAMP NOT NULL,
		duration_ms BIGINT NOT NULL,
		caller VARCHAR(255)
	);

	CREATE INDEX IF NOT EXISTS idx_gateway_calls_started ON gateway_calls(started_at);
	CREATE INDEX IF NOT EXISTS idx_gateway_calls_method ON gateway_calls(method);
	CREATE INDEX IF NOT EXISTS idx_gateway_calls_outcome ON gateway_calls(outcome);
`

// Migrate creates all required tables
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS gateway_calls CASCADE;`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `TRUNCATE TABLE gateway_calls;`)
	return err
}
