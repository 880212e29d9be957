// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration provides a thin wrapper around golang-migrate for
// running database schema migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. It enforces schema
// idempotency during application startup, ensuring the database is always
// in the correct state before traffic is served. Migrations are embedded in
// the binary (see package migrations) and selected by dialect; a directory
// on disk can replace them for hotfixes.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// sqlite driver registers "sqlite" scheme (modernc, no cgo).
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/letsworkapps/authportal/migrations"
)

// Dialect names match the sub-directories of the migrations package.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - databaseURL: postgres://, postgresql:// or sqlite:// URL.
//   - migrationsPath: optional directory overriding the embedded migrations.
//   - logger: Structured logger for migration events.
func RunUp(databaseURL, migrationsPath string, logger *slog.Logger) error {
	migrator, err := newMigrator(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

// RunDown rolls back the given number of migrations.
func RunDown(databaseURL, migrationsPath string, steps int, logger *slog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("migration: steps must be positive, got %d", steps)
	}

	migrator, err := newMigrator(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	if err := migrator.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration: down failed: %w", err)
	}

	version, _, _ := migrator.Version()
	logger.Info("migration_rolled_back", slog.Int("steps", steps), slog.Int("to_version", int(version)))
	return nil
}

// DialectOf maps a database URL onto its migration dialect.
func DialectOf(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"),
		strings.HasPrefix(databaseURL, "pgx5://"):
		return DialectPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migration: unsupported database URL scheme")
	}
}

func newMigrator(databaseURL, migrationsPath string, logger *slog.Logger) (*migrate.Migrate, error) {
	dialect, err := DialectOf(databaseURL)
	if err != nil {
		return nil, err
	}

	if dialect == DialectPostgres {
		databaseURL = convertToPgx5DSN(databaseURL)
	}

	var migrator *migrate.Migrate
	if migrationsPath != "" {
		migrator, err = migrate.New("file://"+migrationsPath, databaseURL)
	} else {
		source, sourceErr := iofs.New(migrations.FS, dialect)
		if sourceErr != nil {
			return nil, fmt.Errorf("migration: failed to open embedded migrations: %w", sourceErr)
		}
		migrator, err = migrate.NewWithSourceInstance("iofs", source, databaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("migration: failed to initialize: %w", err)
	}

	migrator.Log = &migrateLogger{logger: logger}
	return migrator, nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceError, dbError := migrator.Close()
	if sourceError != nil {
		logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
	}
	if dbError != nil {
		logger.Error("migration_db_close_failed", slog.Any("error", dbError))
	}
}

// convertToPgx5DSN ensures the DSN uses the pgx5:// scheme required by golang-migrate/v4.
func convertToPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
