// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements the local user record store and the credential
verifier.

It owns the `user` table: registration (validation, hashing, duplicate
detection) and local sign-in (constant-time password verification). Federated
sign-in reads from it to link an identity provider account to a local username.

# Architecture

  - Entity: User mirrors one row of the `user` table.
  - Repository: PostgreSQL (pgx) and SQLite (database/sql + modernc) implementations.
  - Service: Register, Verify, lookups and last-login bookkeeping.
*/
package account

import (
	"net/http"
	"time"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
)

// # Domain Entities

// User represents one registered account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never serialized.
	DisplayName  string     `json:"display_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedBy    *string    `json:"created_by,omitempty"`
	UpdatedBy    *string    `json:"updated_by,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// # Field Identifiers

// Form field names used by validation and the HTML forms.
const (
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldDisplayName = "display_name"
)

// # Limits

// Column bounds of the `user` table.
const (
	MaxUsernameLength    = 80
	MaxPasswordLength    = 120
	MaxDisplayNameLength = 50
)

// # Errors

var (
	// ErrUserNotFound is returned by repositories when no row matches.
	ErrUserNotFound = apperr.NotFound("User")

	// ErrDuplicateUsername is returned when the username is already taken,
	// whether detected by the pre-check or by the unique constraint.
	ErrDuplicateUsername = apperr.New("DUPLICATE_USERNAME", http.StatusConflict,
		"Username already exists. Please choose a different one.")

	// ErrInvalidCredentials is the single answer to every failed local sign-in.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", http.StatusUnauthorized,
		"Invalid username or password")

	// ErrValidation matches any registration input error under [errors.Is].
	ErrValidation = apperr.ValidationError("Validation failed")
)
