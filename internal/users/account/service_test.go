// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/migration"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/platform/sqlite"
	"github.com/letsworkapps/authportal/internal/users/account"
)

var fastParams = sec.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLength: 16, KeyLength: 32}

// newTestDB returns a migrated SQLite database living in a temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accounts.db")
	require.NoError(t, migration.RunUp("sqlite://"+path, "", slog.New(slog.NewTextHandler(io.Discard, nil))))

	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestService(t *testing.T) (*account.Service, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	return account.NewService(account.NewSQLiteRepository(db), sec.NewPasswordHasher(fastParams)), db
}

/*
TestService_RegisterThenVerify walks the alice scenario end to end at the service level.
*/
func TestService_RegisterThenVerify(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.Register(ctx, account.RegisterInput{
		Username:    "alice",
		Password:    "Secret123",
		DisplayName: "Alice A",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	assert.NotEqual(t, "Secret123", created.PasswordHash)
	assert.False(t, created.CreatedAt.IsZero())

	user, err := service.Verify(ctx, "alice", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "Alice A", user.DisplayName)

	// Wrong password and unknown user answer identically
	_, err = service.Verify(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = service.Verify(ctx, "mallory", "Secret123")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

/*
TestService_Register_Duplicate rejects a second account with the same username.
*/
func TestService_Register_Duplicate(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	input := account.RegisterInput{Username: "alice", Password: "Secret123", DisplayName: "Alice A"}
	_, err := service.Register(ctx, input)
	require.NoError(t, err)

	_, err = service.Register(ctx, input)
	assert.ErrorIs(t, err, account.ErrDuplicateUsername)
}

/*
TestService_Register_Validation covers every bound independently.
*/
func TestService_Register_Validation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	valid := account.RegisterInput{Username: "user", Password: "pw", DisplayName: "Name"}

	tests := []struct {
		name    string
		mutate  func(*account.RegisterInput)
		wantErr bool
	}{
		{"empty_username", func(in *account.RegisterInput) { in.Username = "" }, true},
		{"blank_username", func(in *account.RegisterInput) { in.Username = "   " }, true},
		{"empty_password", func(in *account.RegisterInput) { in.Password = "" }, true},
		{"blank_password", func(in *account.RegisterInput) { in.Password = " \t" }, true},
		{"empty_display_name", func(in *account.RegisterInput) { in.DisplayName = "" }, true},
		{"username_81", func(in *account.RegisterInput) { in.Username = strings.Repeat("u", 81) }, true},
		{"password_121", func(in *account.RegisterInput) { in.Password = strings.Repeat("p", 121) }, true},
		{"display_name_51", func(in *account.RegisterInput) { in.DisplayName = strings.Repeat("d", 51) }, true},
		{"username_80", func(in *account.RegisterInput) { in.Username = strings.Repeat("u", 80) }, false},
		{"password_120", func(in *account.RegisterInput) { in.Password = strings.Repeat("p", 120) }, false},
		{"display_name_50", func(in *account.RegisterInput) { in.DisplayName = strings.Repeat("d", 50) }, false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			input.Username = tt.name + "-" + string(rune('a'+i))
			tt.mutate(&input)

			_, err := service.Register(ctx, input)
			if tt.wantErr {
				assert.ErrorIs(t, err, account.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestService_Register_ConcurrentSameUsername lets several registrations for "bob"
race; exactly one wins and every other one sees a duplicate.
*/
func TestService_Register_ConcurrentSameUsername(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	const attempts = 4
	var (
		wg   sync.WaitGroup
		errs = make([]error, attempts)
	)

	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = service.Register(ctx, account.RegisterInput{
				Username: "bob", Password: "hunter2", DisplayName: "Bob",
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, account.ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)
}

// blindRepository hides existing rows from the pre-check so that only the
// unique constraint can catch a duplicate.
type blindRepository struct {
	account.Repository
}

func (blindRepository) FindByUsername(context.Context, string) (*account.User, error) {
	return nil, account.ErrUserNotFound
}

/*
TestService_Register_ConstraintIsAuthoritative maps the constraint violation to a duplicate.
*/
func TestService_Register_ConstraintIsAuthoritative(t *testing.T) {
	db := newTestDB(t)
	service := account.NewService(blindRepository{account.NewSQLiteRepository(db)}, sec.NewPasswordHasher(fastParams))
	ctx := context.Background()

	input := account.RegisterInput{Username: "bob", Password: "hunter2", DisplayName: "Bob"}
	_, err := service.Register(ctx, input)
	require.NoError(t, err)

	_, err = service.Register(ctx, input)
	assert.ErrorIs(t, err, account.ErrDuplicateUsername)
}

/*
TestService_Verify_InactiveAccount blocks disabled accounts like a wrong password.
*/
func TestService_Verify_InactiveAccount(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, account.RegisterInput{Username: "carol", Password: "pw", DisplayName: "Carol"})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE "user" SET is_active = 0 WHERE username = 'carol'`)
	require.NoError(t, err)

	_, err = service.Verify(ctx, "carol", "pw")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

/*
TestService_Verify_LegacyHash accepts imported PBKDF2 hashes.
*/
func TestService_Verify_LegacyHash(t *testing.T) {
	service, db := newTestService(t)

	_, err := db.Exec(`INSERT INTO "user" (username, password, display_name) VALUES (?, ?, ?)`,
		"legacy", "pbkdf2:sha256:1000$Zq3xR9pLk2mN8vWt$19cfe47c8b8a753c39071deda94e10ffabc4e41ce644107fdb51b73407946815", "Legacy")
	require.NoError(t, err)

	user, err := service.Verify(context.Background(), "legacy", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", user.DisplayName)
}

/*
TestService_RecordLogin stamps last_login.
*/
func TestService_RecordLogin(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, account.RegisterInput{Username: "dave", Password: "pw", DisplayName: "Dave"})
	require.NoError(t, err)
	assert.Nil(t, user.LastLogin)

	service.RecordLogin(ctx, user)
	require.NotNil(t, user.LastLogin)

	stored, err := service.FindByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	// Unknown ids are logged, not returned
	assert.NotPanics(t, func() { service.RecordLogin(ctx, &account.User{ID: 9999}) })
}

/*
TestService_Exists reports presence and rejects empty input.
*/
func TestService_Exists(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, account.RegisterInput{Username: "erin", Password: "pw", DisplayName: "Erin"})
	require.NoError(t, err)

	exists, err := service.Exists(ctx, "erin")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = service.Exists(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = service.Exists(ctx, "")
	assert.True(t, errors.Is(err, account.ErrValidation))
}
