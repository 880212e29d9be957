// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/letsworkapps/authportal/internal/api"
	"github.com/letsworkapps/authportal/internal/federated"
	"github.com/letsworkapps/authportal/internal/platform/config"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	"github.com/letsworkapps/authportal/internal/platform/middleware"
	"github.com/letsworkapps/authportal/internal/platform/migration"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/twofactor"
	"github.com/letsworkapps/authportal/internal/users/account"
	"github.com/letsworkapps/authportal/internal/web"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Usage:

	authportal serve
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve runs the portal until SIGINT or SIGTERM.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from dotenv files and environment variables.
//  3. Open the account database (PostgreSQL or SQLite).
//  4. Open the session backend (filesystem, Redis or memory).
//  5. Run database migrations (idempotent).
//  6. Wire security, identity provider and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(false)
	log.Info("[AuthPortal] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return startupFailure(log, err, "load configuration")
	}

	if cfg.Debug {
		log = newLogger(true)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.ListenAddr),
		slog.String("session_type", cfg.SessionType),
		slog.Bool("federation_enabled", cfg.FederationEnabled()),
	)

	if cfg.IsProduction() && !cfg.SecureCookies() {
		log.Warn("session cookies are sent without the Secure attribute", slog.String("scheme", cfg.URLScheme))
	}

	// Root context for startup, bounded so misconfiguration is caught quickly
	// rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(parent, constants.StartupTimeout)
	defer startupCancel()

	// ── 3. Database ───────────────────────────────────────────────────────
	db, err := openDatabase(startupCtx, cfg, log)
	if err != nil {
		return startupFailure(log, err, "open database")
	}
	defer db.close()

	// ── 4. Sessions ───────────────────────────────────────────────────────
	sessionStore, closeSessions, err := openSessionStore(startupCtx, cfg, log)
	if err != nil {
		return startupFailure(log, err, "open session store")
	}
	defer closeSessions()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return startupFailure(log, err, "run migrations")
	}

	// ── 6. Wiring ─────────────────────────────────────────────────────────
	runCtx, stopBackground := context.WithCancel(parent)
	defer stopBackground()

	signer, err := sec.NewTokenSigner(cfg.SecretKey, constants.SessionIssuer)
	if err != nil {
		return startupFailure(log, err, "initialize session signer")
	}
	sessions := session.NewManager(sessionStore, signer, cfg.SessionLifetime, cfg.SecureCookies())
	go session.RunPruner(runCtx, sessionStore, constants.SessionPruneInterval, log)

	accounts := account.NewService(db.repository, sec.NewPasswordHasher(sec.DefaultArgon2Params))

	var provider web.IdentityProvider
	if cfg.FederationEnabled() {
		federatedProvider, err := federated.New(federated.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Authority:    cfg.Authority,
			Issuer:       cfg.OIDCIssuer(),
			RedirectURL:  cfg.ExternalURL(cfg.RedirectPath),
		})
		if err != nil {
			return startupFailure(log, err, "initialize identity provider")
		}
		provider = federatedProvider
	}

	var recorder metrics.Recorder = metrics.Nop{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		registry := metrics.New()
		recorder = registry
		metricsHandler = registry.Handler()
	}

	webHandler, err := web.NewHandler(web.Dependencies{
		Accounts:      accounts,
		Provider:      provider,
		Sessions:      sessions,
		Authenticator: twofactor.New(cfg.TOTPIssuer),
		Metrics:       recorder,
		RateLimiter:   middleware.NewRateLimiter(runCtx, constants.AuthRateLimitRPS, constants.AuthRateLimitBurst),
		BaseURL:       cfg.BaseURL(),
		RedirectPath:  cfg.RedirectPath,
		Scopes:        cfg.Scopes,
	})
	if err != nil {
		return startupFailure(log, err, "initialize web handlers")
	}

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: db.ping,
		CheckSessions: sessions.Ping,
	}, log)

	server := api.NewServer(cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Web:       webHandler,
		Metrics:   metricsHandler,
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case runErr = <-serverErr:
		log.Error("server startup error", slog.Any("error", runErr))
	}

	// Give in-flight requests enough time to complete.
	log.Info("shutting down server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		return err
	}

	log.Info("server stopped cleanly")
	return runErr
}

// startupFailure logs a structured startup error and returns it to cobra.
func startupFailure(log *slog.Logger, err error, step string) error {
	log.Error("startup failure",
		slog.String("context", step),
		slog.Any("error", err),
	)
	return err
}
