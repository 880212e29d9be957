// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/migration"
	"github.com/letsworkapps/authportal/internal/platform/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestDialectOf maps each supported URL scheme.
*/
func TestDialectOf(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"postgres://u:p@localhost/db", migration.DialectPostgres, false},
		{"postgresql://u:p@localhost/db", migration.DialectPostgres, false},
		{"sqlite://./data/app.db", migration.DialectSQLite, false},
		{"mysql://localhost/db", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := migration.DialectOf(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestRunUp_SQLite applies the embedded migrations to a fresh file and checks
the final shape of the user table.
*/
func TestRunUp_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	logger := discardLogger()

	require.NoError(t, migration.RunUp("sqlite://"+path, "", logger))

	// Second run is a no-op
	require.NoError(t, migration.RunUp("sqlite://"+path, "", logger))

	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM pragma_table_info('user')`)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())

	assert.ElementsMatch(t, []string{
		"id", "username", "password", "display_name",
		"created_at", "updated_at", "last_login", "created_by", "updated_by", "is_active",
	}, columns)
}

/*
TestRunDown_SQLite rolls the audit columns back and keeps existing rows.
*/
func TestRunDown_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	logger := discardLogger()
	require.NoError(t, migration.RunUp("sqlite://"+path, "", logger))

	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "user" (username, password, display_name) VALUES ('carol', 'x', 'Carol')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, migration.RunDown("sqlite://"+path, "", 1, logger))
	assert.Error(t, migration.RunDown("sqlite://"+path, "", 0, logger))

	db, err = sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var displayName string
	require.NoError(t, db.QueryRow(`SELECT display_name FROM "user" WHERE username = 'carol'`).Scan(&displayName))
	assert.Equal(t, "Carol", displayName)
}
