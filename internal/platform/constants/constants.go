// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire portal.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Sessions: Cookie naming and storage key prefixes.
  - Login Methods: Tags recorded on authenticated sessions.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "authportal"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// It must cover the provider token exchange performed by the callback route.
	DefaultWriteTimeout = 20 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 15 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// StartupTimeout bounds connecting to the database and session backend.
	StartupTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// AuthRateLimitRPS is the sustained requests per second allowed per IP on credential routes.
	AuthRateLimitRPS = 2.0

	// AuthRateLimitBurst is the maximum burst allowed on credential routes.
	AuthRateLimitBurst = 10

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Sessions

const (
	// SessionCookieName is the cookie carrying the signed session identifier.
	SessionCookieName = "session"

	// SessionIDLength is the byte length of the random session identifier.
	SessionIDLength = 32

	// SessionIssuer is the 'iss' claim of the signed session cookie.
	SessionIssuer = "authportal"

	// RedisPrefixSession namespaces session payloads in Redis.
	RedisPrefixSession = "auth:session:"

	// SessionPruneInterval is how often file and memory sessions are swept for expiry.
	SessionPruneInterval = 10 * time.Minute
)

// # Login Methods

const (
	// LoginMethodLocal tags sessions authenticated with username and password.
	LoginMethodLocal = "username_password"

	// LoginMethodFederated tags sessions authenticated through the enterprise identity provider.
	LoginMethodFederated = "azure"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldSuccess = "success"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)
