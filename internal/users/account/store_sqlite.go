// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/letsworkapps/authportal/internal/platform/dberr"
)

// sqliteTimeLayout matches the text SQLite itself writes for CURRENT_TIMESTAMP.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteRepository implements [Repository] over a modernc SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite implementation of [Repository].
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// FindByUsername retrieves a user record by its unique username.
func (repository *SQLiteRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, password, display_name, created_at, updated_at,
		       last_login, created_by, updated_by, is_active
		FROM "user" WHERE username = ?`

	var (
		user      = &User{}
		createdAt sqliteTime
		updatedAt sqliteTime
		lastLogin sqliteTime
		createdBy sql.NullString
		updatedBy sql.NullString
	)

	err := repository.db.QueryRowContext(context, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&createdAt,
		&updatedAt,
		&lastLogin,
		&createdBy,
		&updatedBy,
		&user.IsActive,
	)

	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("sqlite_user_repo_find_by_username_failed: %w", err)
	}

	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	if createdBy.Valid {
		user.CreatedBy = &createdBy.String
	}
	if updatedBy.Valid {
		user.UpdatedBy = &updatedBy.String
	}

	return user, nil
}

// Create inserts a new account; the unique constraint on username is the
// authority for duplicates.
func (repository *SQLiteRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO "user" (username, password, display_name, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at, is_active`

	var createdAt, updatedAt sqliteTime
	err := repository.db.QueryRowContext(context, query,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.CreatedBy,
		user.CreatedBy,
	).Scan(&user.ID, &createdAt, &updatedAt, &user.IsActive)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateUsername.WithCause(err)
		}
		return fmt.Errorf("sqlite_user_repo_create_failed: %w", err)
	}

	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	user.UpdatedBy = user.CreatedBy
	return nil
}

// TouchLastLogin stamps last_login and updated_at.
func (repository *SQLiteRepository) TouchLastLogin(context context.Context, id int64, at time.Time) error {
	const query = `UPDATE "user" SET last_login = ?, updated_at = ? WHERE id = ?`

	stamp := at.UTC().Format(sqliteTimeLayout)
	result, err := repository.db.ExecContext(context, query, stamp, stamp, id)
	if err != nil {
		return fmt.Errorf("sqlite_user_repo_touch_last_login_failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite_user_repo_touch_last_login_failed: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// sqliteTime scans DATETIME columns whether the driver hands back a
// time.Time or the raw text SQLite stored.
type sqliteTime struct {
	Time  time.Time
	Valid bool
}

var sqliteTimeLayouts = []string{
	sqliteTimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z",
}

// Scan implements [sql.Scanner].
func (st *sqliteTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		st.Time, st.Valid = time.Time{}, false
		return nil
	case time.Time:
		st.Time, st.Valid = v.UTC(), true
		return nil
	case []byte:
		return st.parse(string(v))
	case string:
		return st.parse(v)
	default:
		return fmt.Errorf("sqlite: cannot scan %T into timestamp", value)
	}
}

func (st *sqliteTime) parse(text string) error {
	text = strings.TrimSpace(text)
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			st.Time, st.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("sqlite: unrecognized timestamp %q", text)
}
