// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package twofactor implements the optional TOTP second-factor setup.

A secret is generated once per session, shown to the user as an otpauth://
QR code and confirmed with a six-digit code from their authenticator app.

# Parameters

RFC 6238 defaults, as understood by every mainstream authenticator:
SHA-1, six digits, 30-second period, 20-byte secret, one step of clock skew.
*/
package twofactor

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period     = 30
	secretSize = 20
	skew       = 1
	qrSize     = 200
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Enrolment is what the setup page needs to display.
type Enrolment struct {
	// URI is the otpauth:// provisioning URI.
	URI string
	// QRCode is the URI rendered as a base64-encoded PNG.
	QRCode string
}

// Authenticator issues and checks TOTP secrets for one issuer name.
type Authenticator struct {
	issuer string
	now    func() time.Time
}

// New returns an [Authenticator] labelling secrets with issuer.
func New(issuer string) *Authenticator {
	return &Authenticator{issuer: issuer, now: time.Now}
}

// NewSecret returns a fresh base32 secret for accountName.
func (authenticator *Authenticator) NewSecret(accountName string) (string, error) {
	key, err := authenticator.generate(accountName, nil)
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// Enrol builds the provisioning URI and QR code for an existing secret.
func (authenticator *Authenticator) Enrol(secret, accountName string) (*Enrolment, error) {
	raw, err := secretEncoding.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return nil, fmt.Errorf("totp_secret_invalid: %w", err)
	}

	key, err := authenticator.generate(accountName, raw)
	if err != nil {
		return nil, err
	}

	image, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("totp_qr_render_failed: %w", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, image); err != nil {
		return nil, fmt.Errorf("totp_qr_encode_failed: %w", err)
	}

	return &Enrolment{
		URI:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(buffer.Bytes()),
	}, nil
}

// Validate reports whether code is valid for secret right now.
func (authenticator *Authenticator) Validate(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, authenticator.now().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

func (authenticator *Authenticator) generate(accountName string, secret []byte) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      authenticator.issuer,
		AccountName: accountName,
		Period:      period,
		SecretSize:  secretSize,
		Secret:      secret,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("totp_generate_failed: %w", err)
	}
	return key, nil
}
