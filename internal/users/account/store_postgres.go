// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/letsworkapps/authportal/internal/platform/dberr"
)

// Querier is the subset of [pgxpool.Pool] used by the repository.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// # User Repository

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool Querier
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const postgresUserColumns = `id, username, password, display_name, created_at, updated_at, last_login, created_by, updated_by, is_active`

/*
FindByUsername retrieves a user record by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := `SELECT ` + postgresUserColumns + ` FROM "user" WHERE username = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
		&user.CreatedBy,
		&user.UpdatedBy,
		&user.IsActive,
	)

	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new user record and reads back the server-assigned columns.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrDuplicateUsername on SQLSTATE 23505, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO "user" (username, password, display_name, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at, is_active`

	err := repository.pool.QueryRow(context, query,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.CreatedBy,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.IsActive)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateUsername.WithCause(err)
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	user.UpdatedBy = user.CreatedBy
	return nil
}

// TouchLastLogin stamps last_login and updated_at.
func (repository *PostgresRepository) TouchLastLogin(context context.Context, id int64, at time.Time) error {
	const query = `UPDATE "user" SET last_login = $2, updated_at = $2 WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id, at)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_touch_last_login_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
