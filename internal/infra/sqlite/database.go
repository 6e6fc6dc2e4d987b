/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB initializes the SQLite database and creates necessary tables.
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Connection-level pragmas to improve concurrency and reliability.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA synchronous: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA busy_timeout: %w", err)
	}

	// Create tables and indexes
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// createSchema creates all necessary database tables.
func createSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	-- Enable foreign keys
	PRAGMA foreign_keys = ON;

	-- Fleet signals table: one row per miner per epoch, later submissions
	-- replace earlier ones
	CREATE TABLE IF NOT EXISTS fleet_signals (
		miner TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		attest_ts INTEGER NOT NULL,
		subnet_hash TEXT NOT NULL DEFAULT '',
		clock_drift_cv REAL NOT NULL DEFAULT 0,
		cache_timing_hash TEXT NOT NULL DEFAULT '',
		thermal_signature REAL NOT NULL DEFAULT 0,
		simd_timing_hash TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (miner, epoch)
	);

	-- Create index on epoch for per-epoch scans
	CREATE INDEX IF NOT EXISTS idx_fleet_signals_epoch ON fleet_signals(epoch);
	CREATE INDEX IF NOT EXISTS idx_fleet_signals_subnet ON fleet_signals(epoch, subnet_hash);

	-- Fleet scores table
	CREATE TABLE IF NOT EXISTS fleet_scores (
		miner TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		fleet_score REAL NOT NULL DEFAULT 0,
		ip_signal REAL NOT NULL DEFAULT 0,
		timing_signal REAL NOT NULL DEFAULT 0,
		fingerprint_signal REAL NOT NULL DEFAULT 0,
		cluster_id TEXT NOT NULL DEFAULT '',
		effective_multiplier REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (miner, epoch)
	);

	CREATE INDEX IF NOT EXISTS idx_fleet_scores_epoch ON fleet_scores(epoch);
	CREATE INDEX IF NOT EXISTS idx_fleet_scores_cluster ON fleet_scores(cluster_id);

	-- Bucket pressure snapshots per epoch
	CREATE TABLE IF NOT EXISTS bucket_pressure (
		epoch INTEGER NOT NULL,
		bucket TEXT NOT NULL,
		population INTEGER NOT NULL,
		ideal REAL NOT NULL,
		multiplier REAL NOT NULL,
		PRIMARY KEY (epoch, bucket)
	);

	-- Registered hardware profiles
	CREATE TABLE IF NOT EXISTS hardware_profiles (
		validator TEXT PRIMARY KEY,
		device_arch TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	-- One registered serial per (validator, serial type)
	CREATE TABLE IF NOT EXISTS hardware_serials (
		validator TEXT NOT NULL,
		serial_type TEXT NOT NULL,
		serial_value TEXT NOT NULL,
		PRIMARY KEY (validator, serial_type),
		FOREIGN KEY (validator) REFERENCES hardware_profiles(validator) ON DELETE CASCADE
	);
	`

	// Execute schema using transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
