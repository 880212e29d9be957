// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/api"
	"github.com/letsworkapps/authportal/internal/platform/config"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/twofactor"
	"github.com/letsworkapps/authportal/internal/web"
)

func newTestServer(t *testing.T, deps api.HealthDependencies) *api.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer, err := sec.NewTokenSigner("test-secret-key", constants.SessionIssuer)
	require.NoError(t, err)

	recorder := metrics.New()
	webHandler, err := web.NewHandler(web.Dependencies{
		Sessions:      session.NewManager(session.NewMemoryStore(), signer, time.Hour, false),
		Authenticator: twofactor.New("LetsWorkApps"),
		Metrics:       recorder,
		BaseURL:       "http://localhost:5000",
		RedirectPath:  "/getAToken",
	})
	require.NoError(t, err)

	liveness, readiness := api.NewHealthHandlers(deps, logger)
	cfg := &config.Config{ListenAddr: ":0", URLScheme: "https"}

	return api.NewServer(cfg, logger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Web:       webHandler,
		Metrics:   recorder.Handler(),
	})
}

func serve(server *api.Server, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

/*
TestServer_HealthChecks checks liveness and readiness with healthy and failing dependencies.
*/
func TestServer_HealthChecks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	healthy := newTestServer(t, api.HealthDependencies{CheckDatabase: ok, CheckSessions: ok})
	recorder := serve(healthy, "/health")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = serve(healthy, "/ready")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ready","checks":[{"name":"database","ok":true},{"name":"sessions","ok":true}]}`, recorder.Body.String())

	degraded := newTestServer(t, api.HealthDependencies{CheckDatabase: ok, CheckSessions: down})
	recorder = serve(degraded, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"degraded"`)
	assert.Contains(t, recorder.Body.String(), "connection refused")
}

/*
TestServer_Routes mounts the browser routes and metrics behind the middleware chain.
*/
func TestServer_Routes(t *testing.T) {
	server := newTestServer(t, api.HealthDependencies{})

	recorder := serve(server, "/")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Please sign in to continue.")
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, recorder.Header().Get("Strict-Transport-Security"))

	recorder = serve(server, "/metrics")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "go_goroutines")

	recorder = serve(server, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
