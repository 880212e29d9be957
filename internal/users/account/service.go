// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/platform/validate"
)

// Service implements the account use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	repository Repository
	hasher     *sec.PasswordHasher
	now        func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(repository Repository, hasher *sec.PasswordHasher) *Service {
	return &Service{
		repository: repository,
		hasher:     hasher,
		now:        time.Now,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	// CreatedBy names the actor creating the row; empty for self-registration.
	CreatedBy string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Username and display name are stored trimmed. The password is
hashed immediately and never stored or logged in plain text. Duplicate
usernames are reported as [ErrDuplicateUsername], whether caught by the
pre-check or by the unique constraint when two registrations race.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: ErrValidation, ErrDuplicateUsername or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	displayName := strings.TrimSpace(input.DisplayName)

	// ── 1. Validate ──
	err := (&validate.Validator{}).
		Required(FieldUsername, username).
		MaxLen(FieldUsername, username, MaxUsernameLength).
		Required(FieldPassword, input.Password).
		MaxLen(FieldPassword, input.Password, MaxPasswordLength).
		Required(FieldDisplayName, displayName).
		MaxLen(FieldDisplayName, displayName, MaxDisplayNameLength).
		Err()
	if err != nil {
		return nil, err
	}

	// ── 2. Pre-check uniqueness ──
	_, err = service.repository.FindByUsername(context, username)
	switch {
	case err == nil:
		return nil, ErrDuplicateUsername
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("account_service_register_failed: %w", err)
	}

	// ── 3. Hash ──
	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
		IsActive:     true,
	}
	if input.CreatedBy != "" {
		createdBy := input.CreatedBy
		user.CreatedBy = &createdBy
	}

	// ── 4. Persist (the unique constraint is the real enforcement point) ──
	if err := service.repository.Create(context, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("account_service_register_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

/*
Verify checks a username and password pair.

Description: Unknown usernames still pay for one full hash verification so the
response time does not reveal whether the account exists. Inactive accounts
are rejected with the same error as a wrong password.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - *User: The matched account
  - err: ErrInvalidCredentials or storage errors
*/
func (service *Service) Verify(context context.Context, username, password string) (*User, error) {
	user, err := service.repository.FindByUsername(context, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			service.hasher.Burn(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("account_service_verify_failed: %w", err)
	}

	if !service.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// # Lookups

// FindByUsername returns the account with exactly this username.
func (service *Service) FindByUsername(context context.Context, username string) (*User, error) {
	user, err := service.repository.FindByUsername(context, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("account_service_find_failed: %w", err)
	}
	return user, nil
}

// Exists reports whether an account with this username exists. An empty
// username is a validation error.
func (service *Service) Exists(context context.Context, username string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, validate.RequiredError(FieldUsername, "Username is required")
	}

	_, err := service.repository.FindByUsername(context, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUserNotFound):
		return false, nil
	default:
		return false, apperr.Internal(fmt.Errorf("account_service_exists_failed: %w", err))
	}
}

// RecordLogin stamps last_login for a successful sign-in. Failures are logged
// and never block the login.
func (service *Service) RecordLogin(context context.Context, user *User) {
	at := service.now()
	if err := service.repository.TouchLastLogin(context, user.ID, at); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "last_login_update_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}
	user.LastLogin = &at
	user.UpdatedAt = at
}
