// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives of the portal.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, session
// token signing, random identifiers) from the domain logic. Services receive a
// [PasswordHasher] and never touch the primitives directly.
//
// # Password format
//
// New hashes use argon2id in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// Accounts imported from the previous deployment carry werkzeug hashes, which
// are still accepted on verify:
//
//	pbkdf2:sha256:<iterations>$<salt>$<hex>
//	scrypt:<N>:<r>:<p>$<salt>$<hex>
package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Argon2Params are the cost parameters of an argon2id hash.
type Argon2Params struct {
	// Time is the number of passes over memory.
	Time uint32
	// Memory is the memory cost in KiB.
	Memory uint32
	// Threads is the degree of parallelism.
	Threads uint8
	// SaltLength is the random salt size in bytes.
	SaltLength uint32
	// KeyLength is the derived key size in bytes.
	KeyLength uint32
}

// DefaultArgon2Params is used for every new password hash in production.
var DefaultArgon2Params = Argon2Params{
	Time:       3,
	Memory:     64 * 1024,
	Threads:    2,
	SaltLength: 16,
	KeyLength:  32,
}

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("sec: unsupported password hash format")

// dummyHash is verified against when no account exists so that unknown
// usernames cost the same as wrong passwords.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

const (
	argon2Prefix      = "$argon2id$"
	werkzeugPBKDF2    = "pbkdf2:sha256:"
	werkzeugKeyLength = sha256.Size
	werkzeugScrypt    = "scrypt:"
	scryptKeyLength   = 64
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher returns a hasher producing argon2id hashes with params.
func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// Hash derives an argon2id hash for plainTextPassword using a fresh random salt.
func (hasher *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	salt := make([]byte, hasher.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec: failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plainTextPassword), salt,
		hasher.params.Time, hasher.params.Memory, hasher.params.Threads, hasher.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hasher.params.Memory, hasher.params.Time, hasher.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares plainTextPassword with a stored hash in constant time.
// Malformed or unsupported hashes never match.
func (hasher *PasswordHasher) Verify(plainTextPassword, storedHash string) bool {
	var (
		ok  bool
		err error
	)

	switch {
	case strings.HasPrefix(storedHash, argon2Prefix):
		ok, err = verifyArgon2(plainTextPassword, storedHash)
	case strings.HasPrefix(storedHash, werkzeugPBKDF2):
		ok, err = verifyWerkzeugPBKDF2(plainTextPassword, storedHash)
	case strings.HasPrefix(storedHash, werkzeugScrypt):
		ok, err = verifyWerkzeugScrypt(plainTextPassword, storedHash)
	default:
		err = ErrUnsupportedHash
	}

	return err == nil && ok
}

// Burn performs a full verification against a fixed hash and discards the result.
func (hasher *PasswordHasher) Burn(plainTextPassword string) {
	_ = hasher.Verify(plainTextPassword, dummyHash)
}

func verifyArgon2(plainTextPassword, storedHash string) (bool, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(storedHash, "$")
	if len(parts) != 6 {
		return false, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrUnsupportedHash
	}

	var (
		memory, time uint32
		threads      uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrUnsupportedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrUnsupportedHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, ErrUnsupportedHash
	}

	actual := argon2.IDKey([]byte(plainTextPassword), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func verifyWerkzeugPBKDF2(plainTextPassword, storedHash string) (bool, error) {
	// pbkdf2:sha256:<iterations>$<salt>$<hex>
	method, rest, found := strings.Cut(storedHash, "$")
	if !found {
		return false, ErrUnsupportedHash
	}
	salt, hexKey, found := strings.Cut(rest, "$")
	if !found {
		return false, ErrUnsupportedHash
	}

	iterations, err := strconv.Atoi(strings.TrimPrefix(method, werkzeugPBKDF2))
	if err != nil || iterations <= 0 {
		return false, ErrUnsupportedHash
	}

	expected, err := hex.DecodeString(hexKey)
	if err != nil || len(expected) != werkzeugKeyLength {
		return false, ErrUnsupportedHash
	}

	actual := pbkdf2.Key([]byte(plainTextPassword), []byte(salt), iterations, werkzeugKeyLength, sha256.New)
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func verifyWerkzeugScrypt(plainTextPassword, storedHash string) (bool, error) {
	// scrypt:<N>:<r>:<p>$<salt>$<hex>
	method, rest, found := strings.Cut(storedHash, "$")
	if !found {
		return false, ErrUnsupportedHash
	}
	salt, hexKey, found := strings.Cut(rest, "$")
	if !found {
		return false, ErrUnsupportedHash
	}

	var n, r, p int
	if _, err := fmt.Sscanf(method, "scrypt:%d:%d:%d", &n, &r, &p); err != nil {
		return false, ErrUnsupportedHash
	}

	expected, err := hex.DecodeString(hexKey)
	if err != nil || len(expected) != scryptKeyLength {
		return false, ErrUnsupportedHash
	}

	// Rejects N that is not a power of two and oversized r*p.
	actual, err := scrypt.Key([]byte(plainTextPassword), []byte(salt), n, r, p, scryptKeyLength)
	if err != nil {
		return false, ErrUnsupportedHash
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}
