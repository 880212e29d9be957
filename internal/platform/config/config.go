// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. Dotenv files
(.env, .flaskenv) are read first when present so local development can keep
its settings on disk.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, sessions, provider) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported session backends.
const (
	SessionTypeFilesystem = "filesystem"
	SessionTypeRedis      = "redis"
	SessionTypeMemory     = "memory"
)

// Supported database URL schemes.
const (
	schemePostgres   = "postgres://"
	schemePostgreSQL = "postgresql://"
	schemeSQLite     = "sqlite://"
)

// DefaultEnvFiles are the dotenv files read by [Load] when they exist.
var DefaultEnvFiles = []string{".env", ".flaskenv"}

// # Configuration Schema

// Config holds all runtime configuration for the portal.
type Config struct {

	// Server settings
	ListenAddr  string `env:"LISTEN_ADDR"          envDefault:":5000"`
	ServerName  string `env:"SERVER_NAME"          envDefault:"localhost:5000"`
	URLScheme   string `env:"PREFERRED_URL_SCHEME" envDefault:"http"`
	Environment string `env:"ENVIRONMENT"          envDefault:"development"`
	Debug       bool   `env:"DEBUG"                envDefault:"false"`

	// SecretKey signs the session cookie.
	SecretKey string `env:"SECRET_KEY,required"`

	// Server-side sessions
	SessionType     string        `env:"SESSION_TYPE"     envDefault:"filesystem"`
	SessionFileDir  string        `env:"SESSION_FILE_DIR" envDefault:"./data/sessions"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	RedisURL        string        `env:"REDIS_URL"`

	// Enterprise identity provider (OAuth2 / OIDC)
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Authority    string   `env:"AUTHORITY"`
	Issuer       string   `env:"OIDC_ISSUER"`
	RedirectPath string   `env:"REDIRECT_PATH" envDefault:"/getAToken"`
	Scopes       []string `env:"SCOPE"         envDefault:"User.Read" envSeparator:" "`

	// TrustedProxies lists reverse proxies (CIDR or address) whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Relational Database (PostgreSQL or SQLite)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath overrides the embedded migrations with a directory on disk.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Second factor
	TOTPIssuer string `env:"TOTP_ISSUER" envDefault:"LetsWorkApps"`

	// Observability
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// # Configuration Loading

// Load reads the default dotenv files and parses environment variables into a [Config].
func Load() (*Config, error) {
	return LoadFiles(DefaultEnvFiles...)
}

// LoadFiles reads the given dotenv files (skipping missing ones) and parses the
// environment into a validated [Config]. Variables already present in the
// process environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", file, err)
		}
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the cross-field rules env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.SessionType {
	case SessionTypeFilesystem:
		if c.SessionFileDir == "" {
			errs = append(errs, errors.New("SESSION_FILE_DIR is required for filesystem sessions"))
		}
	case SessionTypeRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for redis sessions"))
		}
	case SessionTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported SESSION_TYPE %q", c.SessionType))
	}

	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}

	if !c.IsPostgres() && !c.IsSQLite() {
		errs = append(errs, errors.New("DATABASE_URL must start with postgres://, postgresql:// or sqlite://"))
	}

	if !strings.HasPrefix(c.RedirectPath, "/") {
		errs = append(errs, errors.New("REDIRECT_PATH must start with '/'"))
	}

	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}

	if c.FederationEnabled() && c.ClientSecret == "" {
		errs = append(errs, errors.New("CLIENT_SECRET is required when CLIENT_ID and AUTHORITY are set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsPostgres reports whether DATABASE_URL points at PostgreSQL.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, schemePostgres) || strings.HasPrefix(c.DatabaseURL, schemePostgreSQL)
}

// IsSQLite reports whether DATABASE_URL points at a SQLite file.
func (c *Config) IsSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, schemeSQLite)
}

// SQLitePath returns the filesystem path of a sqlite:// DATABASE_URL.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, schemeSQLite)
}

// FederationEnabled reports whether enterprise sign-in is configured.
func (c *Config) FederationEnabled() bool {
	return c.ClientID != "" && c.Authority != ""
}

// OIDCIssuer returns the issuer used for discovery. Azure AD v2 authorities
// publish their metadata under "<authority>/v2.0".
func (c *Config) OIDCIssuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return strings.TrimSuffix(c.Authority, "/") + "/v2.0"
}

// BaseURL is the externally visible origin, e.g. "http://localhost:5000".
func (c *Config) BaseURL() string {
	return c.URLScheme + "://" + c.ServerName
}

// ExternalURL joins path onto [Config.BaseURL].
func (c *Config) ExternalURL(path string) string {
	return c.BaseURL() + path
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.URLScheme == "https"
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A single address becomes a
// host-sized prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES contains an invalid entry %q", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
