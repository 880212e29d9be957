// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "username", "alice", false},
		{"empty_string", "username", "", true},
		{"whitespace_only", "username", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
				assert.Equal(t, "Username is required", ae.Details[0].Message)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_MaxLen counts runes, not bytes.
*/
func TestValidator_MaxLen(t *testing.T) {
	v := &validate.Validator{}
	v.MaxLen("display_name", strings.Repeat("é", 50), 50)
	assert.False(t, v.HasErrors())

	v.MaxLen("display_name", strings.Repeat("é", 51), 50)
	ae := apperr.As(v.Err())
	require.NotNil(t, ae)
	assert.Equal(t, "Display name must be at most 50 characters", ae.Details[0].Message)
}

/*
TestValidator_Matches checks the pattern rule used for one-time codes.
*/
func TestValidator_Matches(t *testing.T) {
	sixDigits := regexp.MustCompile(`^\d{6}$`)

	assert.False(t, (&validate.Validator{}).Matches("token", "123456", sixDigits, "bad").HasErrors())
	assert.True(t, (&validate.Validator{}).Matches("token", "12a456", sixDigits, "bad").HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").
		MaxLen("password", strings.Repeat("x", 121), 120).
		Required("display_name", "  ").
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 3)
	assert.Equal(t, []string{
		"Username is required",
		"Password must be at most 120 characters",
		"Display name is required",
	}, apperr.Messages(err))
}
