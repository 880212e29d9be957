// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/sec"
)

var fastParams = sec.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLength: 16, KeyLength: 32}

/*
TestPasswordHasher_RoundTrip hashes with argon2id and verifies.
*/
func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := sec.NewPasswordHasher(fastParams)

	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))
	assert.NotContains(t, hash, "Secret123")
	assert.LessOrEqual(t, len(hash), 120)

	assert.True(t, hasher.Verify("Secret123", hash))
	assert.False(t, hasher.Verify("secret123", hash))
}

/*
TestPasswordHasher_SaltIsRandom ensures equal passwords never share a hash.
*/
func TestPasswordHasher_SaltIsRandom(t *testing.T) {
	hasher := sec.NewPasswordHasher(fastParams)

	first, err := hasher.Hash("same")
	require.NoError(t, err)
	second, err := hasher.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestPasswordHasher_DefaultParamsFitColumn keeps production hashes within the password column.
*/
func TestPasswordHasher_DefaultParamsFitColumn(t *testing.T) {
	hash, err := sec.NewPasswordHasher(sec.DefaultArgon2Params).Hash("Secret123")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hash), 120)
}

/*
TestPasswordHasher_LegacyWerkzeug accepts PBKDF2 hashes from the previous deployment.
*/
func TestPasswordHasher_LegacyWerkzeug(t *testing.T) {
	hasher := sec.NewPasswordHasher(fastParams)
	legacy := "pbkdf2:sha256:1000$Zq3xR9pLk2mN8vWt$19cfe47c8b8a753c39071deda94e10ffabc4e41ce644107fdb51b73407946815"

	assert.True(t, hasher.Verify("Secret123", legacy))
	assert.False(t, hasher.Verify("Secret124", legacy))
}

/*
TestPasswordHasher_LegacyWerkzeugScrypt accepts scrypt hashes, the werkzeug 3 default.
*/
func TestPasswordHasher_LegacyWerkzeugScrypt(t *testing.T) {
	hasher := sec.NewPasswordHasher(fastParams)
	legacy := "scrypt:1024:8:1$Xk7pQ2wLr9sT4vNb$" +
		"a5940752dfc054c70779a8da78e90e28d5f4e664f7abb1770bd3941ee9315f70" +
		"81593212e500967f45da903e615216ee5cea76595dc6ebe87969c8df0c3bc766"

	assert.True(t, hasher.Verify("Secret123", legacy))
	assert.False(t, hasher.Verify("Secret124", legacy))
}

/*
TestPasswordHasher_MalformedNeverMatches covers broken stored values.
*/
func TestPasswordHasher_MalformedNeverMatches(t *testing.T) {
	hasher := sec.NewPasswordHasher(fastParams)

	tests := []string{
		"",
		"Secret123",
		"$argon2id$v=19$garbage",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"pbkdf2:sha256:abc$salt$00",
		"pbkdf2:sha256:1000$salt$nothex",
		"scrypt:1024:8$salt$00",
		"scrypt:1000:8:1$salt$" + strings.Repeat("00", 64),
		"scrypt:1024:8:1$salt$00",
		"bcrypt$2a$10$abcdef",
	}

	for _, stored := range tests {
		assert.False(t, hasher.Verify("Secret123", stored), stored)
	}

	// Burn must not panic on its fixed hash
	assert.NotPanics(t, func() { hasher.Burn("anything") })
}
