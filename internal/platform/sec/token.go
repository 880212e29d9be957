// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the signed session cookie.
//
// # Why a JWT?
//
// The cookie only carries the opaque session identifier; signing it with the
// application secret lets the server reject forged or tampered identifiers
// before touching the session backend.
type SessionClaims struct {
	jwt.RegisteredClaims

	// SessionID is abbreviated to keep the cookie small.
	SessionID string `json:"sid"`
}

// TokenSigner signs and verifies session cookies with HMAC-SHA256.
type TokenSigner struct {
	secret []byte
	issuer string
}

// NewTokenSigner creates a new TokenSigner keyed by secret.
func NewTokenSigner(secret, issuer string) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &TokenSigner{secret: []byte(secret), issuer: issuer}, nil
}

// Sign creates a signed token for sessionID valid for timeToLive.
func (signer *TokenSigner) Sign(sessionID string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, issuer and expiry of tokenString and returns
// the session identifier it carries.
func (signer *TokenSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	}, jwt.WithIssuer(signer.issuer), jwt.WithExpirationRequired())

	if err != nil {
		return "", fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", errors.New("sec: invalid token claims")
	}

	return claims.SessionID, nil
}

// GenerateSecureToken returns n random bytes encoded as URL-safe base64.
func GenerateSecureToken(n int) (string, error) {
	buffer := make([]byte, n)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
