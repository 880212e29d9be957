// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"time"
)

// # User Data Access

// Repository defines the data access contract for user accounts.
type Repository interface {

	/*
		FindByUsername returns the account whose username matches exactly.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create inserts a new account and fills in its generated ID and timestamps.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: ErrDuplicateUsername on unique violation, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		TouchLastLogin stamps last_login and updated_at for the account.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - at: time.Time

		Returns:
		  - error: ErrUserNotFound or persistence failures
	*/
	TouchLastLogin(context context.Context, id int64, at time.Time) error
}
