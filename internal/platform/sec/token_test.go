// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/sec"
)

/*
TestTokenSigner_RoundTrip signs a session id and reads it back.
*/
func TestTokenSigner_RoundTrip(t *testing.T) {
	signer, err := sec.NewTokenSigner("top-secret", "authportal")
	require.NoError(t, err)

	token, err := signer.Sign("sid-123", time.Hour)
	require.NoError(t, err)

	sessionID, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-123", sessionID)
}

/*
TestTokenSigner_Rejects covers forged, expired and foreign tokens.
*/
func TestTokenSigner_Rejects(t *testing.T) {
	signer, err := sec.NewTokenSigner("top-secret", "authportal")
	require.NoError(t, err)
	other, err := sec.NewTokenSigner("another-secret", "authportal")
	require.NoError(t, err)
	foreignIssuer, err := sec.NewTokenSigner("top-secret", "someone-else")
	require.NoError(t, err)

	forged, err := other.Sign("sid", time.Hour)
	require.NoError(t, err)
	expired, err := signer.Sign("sid", -time.Minute)
	require.NoError(t, err)
	foreign, err := foreignIssuer.Sign("sid", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"forged":  forged,
		"expired": expired,
		"issuer":  foreign,
		"garbage": "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := signer.Verify(token)
			assert.Error(t, err)
		})
	}

	_, err = sec.NewTokenSigner("", "authportal")
	assert.Error(t, err)
}

/*
TestGenerateSecureToken returns distinct URL-safe values.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}
