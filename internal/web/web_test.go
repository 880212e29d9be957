// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/federated"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	"github.com/letsworkapps/authportal/internal/platform/middleware"
	"github.com/letsworkapps/authportal/internal/platform/migration"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/platform/sqlite"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/twofactor"
	"github.com/letsworkapps/authportal/internal/users/account"
	"github.com/letsworkapps/authportal/internal/web"
)

const (
	testBaseURL      = "http://localhost:5000"
	testRedirectPath = "/getAToken"
	fakeAuthorizeURL = "https://idp.example.com/authorize?state=state-1"
)

var fastParams = sec.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLength: 16, KeyLength: 32}

// # Fakes

// fakeProvider stands in for the enterprise identity provider.
type fakeProvider struct {
	claims *federated.Claims
	err    error
}

func (provider *fakeProvider) Begin(context.Context, []string) (string, federated.FlowState, error) {
	return fakeAuthorizeURL, federated.FlowState{
		State:        "state-1",
		Nonce:        "nonce-1",
		CodeVerifier: "verifier-1",
		RedirectURI:  testBaseURL + testRedirectPath,
		AuthURI:      fakeAuthorizeURL,
	}, nil
}

func (provider *fakeProvider) Complete(_ context.Context, flow federated.FlowState, params url.Values) (*federated.Claims, error) {
	if params.Get("state") != flow.State {
		return nil, federated.ErrCSRFMismatch
	}
	if provider.err != nil {
		return nil, provider.err
	}
	return provider.claims, nil
}

func (provider *fakeProvider) LogoutURL(postLogoutRedirect, idTokenHint string) string {
	query := url.Values{"post_logout_redirect_uri": {postLogoutRedirect}}
	if idTokenHint != "" {
		query.Set("id_token_hint", idTokenHint)
	}
	return "https://idp.example.com/logout?" + query.Encode()
}

// failingAccounts fails every lookup.
type failingAccounts struct {
	web.Accounts
}

func (failingAccounts) Exists(context.Context, string) (bool, error) {
	return false, errors.New("database is locked")
}

// # Harness

type harness struct {
	accounts *account.Service
	metrics  *metrics.Metrics
	server   *httptest.Server
}

func newAccounts(t *testing.T) *account.Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portal.db")
	require.NoError(t, migration.RunUp("sqlite://"+path, "", slog.New(slog.NewTextHandler(io.Discard, nil))))

	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return account.NewService(account.NewSQLiteRepository(db), sec.NewPasswordHasher(fastParams))
}

// newHarness serves the routes over a real listener. provider may be nil.
func newHarness(t *testing.T, accounts web.Accounts, provider web.IdentityProvider, options ...func(*web.Dependencies)) *harness {
	t.Helper()

	signer, err := sec.NewTokenSigner("test-secret-key", constants.SessionIssuer)
	require.NoError(t, err)

	recorder := metrics.New()
	deps := web.Dependencies{
		Accounts:      accounts,
		Provider:      provider,
		Sessions:      session.NewManager(session.NewMemoryStore(), signer, time.Hour, false),
		Authenticator: twofactor.New("LetsWorkApps"),
		Metrics:       recorder,
		BaseURL:       testBaseURL,
		RedirectPath:  testRedirectPath,
		Scopes:        []string{"User.Read"},
	}
	for _, option := range options {
		option(&deps)
	}

	handler, err := web.NewHandler(deps)
	require.NoError(t, err)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	h := &harness{metrics: recorder, server: server}
	if service, ok := accounts.(*account.Service); ok {
		h.accounts = service
	}
	return h
}

// browser keeps cookies across requests and never follows redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

type page struct {
	status   int
	location string
	body     string
}

func (h *harness) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{
		t:    t,
		base: h.server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(request *http.Request) page {
	b.t.Helper()

	response, err := b.client.Do(request)
	require.NoError(b.t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(b.t, err)

	return page{status: response.StatusCode, location: response.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	request, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(request)
}

func (b *browser) postForm(path string, form url.Values) page {
	b.t.Helper()
	request, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(request)
}

func (b *browser) postJSON(path, body string) page {
	b.t.Helper()
	request, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	request.Header.Set("Content-Type", "application/json")
	return b.do(request)
}

func (b *browser) register(username, password, displayName string) page {
	b.t.Helper()
	return b.postForm("/register", url.Values{
		"username":     {username},
		"password":     {password},
		"display_name": {displayName},
	})
}

func (b *browser) login(username, password string) page {
	b.t.Helper()
	return b.postForm("/username_password_login", url.Values{
		"username": {username},
		"password": {password},
	})
}

// withRateLimit guards the credential routes with a one-request bucket.
func withRateLimit(t *testing.T) func(*web.Dependencies) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return func(deps *web.Dependencies) {
		deps.RateLimiter = middleware.NewRateLimiter(ctx, 0.001, 1)
	}
}
