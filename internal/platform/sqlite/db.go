// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sqlite opens the embedded single-file database used by small
// deployments and by the test suite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

const pingTimeout = 2 * time.Second

// Open opens (creating if needed) the SQLite database at path.
//
// SQLite allows a single writer, so the pool is capped at one connection;
// concurrent requests queue on database/sql instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: failed to create directory %s: %w", dir, err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Ping verifies that the database file is reachable.
func Ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}
