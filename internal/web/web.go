// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package web is the route controller of the portal: it maps browser requests
onto the account service, the federated identity provider and the session.

# Architecture

Every HTML route ends in a rendered page or a redirect. Failures are never
shown as raw errors; they become flash messages carried by the session to
the next rendered page.

# Sign-in State

After every completed request the session is Anonymous or Authenticated.
The federated callback always consumes the pending flow, whatever the
outcome of the exchange.
*/
package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/letsworkapps/authportal/internal/federated"
	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	"github.com/letsworkapps/authportal/internal/platform/middleware"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/twofactor"
	"github.com/letsworkapps/authportal/internal/users/account"
)

// # Collaborators

// Accounts is the subset of [account.Service] the routes depend on.
type Accounts interface {
	Register(ctx context.Context, input account.RegisterInput) (*account.User, error)
	Verify(ctx context.Context, username, password string) (*account.User, error)
	FindByUsername(ctx context.Context, username string) (*account.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	RecordLogin(ctx context.Context, user *account.User)
}

// IdentityProvider is the subset of [federated.Provider] the routes depend on.
type IdentityProvider interface {
	Begin(ctx context.Context, scopes []string) (string, federated.FlowState, error)
	Complete(ctx context.Context, flow federated.FlowState, params url.Values) (*federated.Claims, error)
	LogoutURL(postLogoutRedirect, idTokenHint string) string
}

// Dependencies groups everything a [Handler] needs.
type Dependencies struct {
	Accounts Accounts

	// Provider is nil when enterprise sign-in is not configured.
	Provider IdentityProvider

	Sessions      *session.Manager
	Authenticator *twofactor.Authenticator
	Metrics       metrics.Recorder

	// RateLimiter guards the credential routes. Optional.
	RateLimiter *middleware.RateLimiter

	// BaseURL is the externally visible origin, e.g. http://localhost:5000.
	BaseURL string

	// RedirectPath is the provider callback path, e.g. /getAToken.
	RedirectPath string

	// Scopes are requested in addition to openid and profile.
	Scopes []string
}

// # Definitions & Constructors

// Handler implements the browser-facing routes.
type Handler struct {
	accounts      Accounts
	provider      IdentityProvider
	sessions      *session.Manager
	authenticator *twofactor.Authenticator
	metrics       metrics.Recorder
	limiter       *middleware.RateLimiter
	pages         *pages

	baseURL      string
	redirectPath string
	scopes       []string
}

// NewHandler constructs a [Handler] and parses the embedded templates.
func NewHandler(deps Dependencies) (*Handler, error) {
	parsed, err := parsePages()
	if err != nil {
		return nil, err
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Handler{
		accounts:      deps.Accounts,
		provider:      deps.Provider,
		sessions:      deps.Sessions,
		authenticator: deps.Authenticator,
		metrics:       recorder,
		limiter:       deps.RateLimiter,
		pages:         parsed,
		baseURL:       deps.BaseURL,
		redirectPath:  deps.RedirectPath,
		scopes:        deps.Scopes,
	}, nil
}

// Routes returns a [chi.Router] with every browser route.
//
// # Endpoints
//   - GET  /                         : Landing page.
//   - GET  /register, POST /register : Registration form.
//   - POST /check_username           : Live username lookup (JSON).
//   - GET  /login                    : Login page.
//   - POST /username_password_login  : Local sign-in.
//   - GET  /azure_login              : Begin federated sign-in.
//   - GET  <redirect path>           : Federated callback.
//   - GET  /azure_logout             : Provider-side logout.
//   - GET  /logout                   : Logout dispatch.
//   - GET/POST /setup_2fa            : TOTP setup (authenticated only).
//   - GET  /static/*                 : Embedded assets.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	router.Group(func(r chi.Router) {
		r.Use(handler.sessions.Middleware)
		r.Use(handler.recordLoginMethod)

		r.Get("/", handler.index)
		r.Get("/register", handler.registerForm)
		r.Get("/login", handler.loginForm)
		r.Get("/azure_login", handler.federatedLogin)
		r.Get(handler.redirectPath, handler.federatedCallback)
		r.Get("/azure_logout", handler.federatedLogout)
		r.Get("/logout", handler.logout)

		// Credential routes
		r.With(handler.limitForm("/register")).Post("/register", handler.register)
		r.With(handler.limitJSON).Post("/check_username", handler.checkUsername)
		r.With(handler.limitForm("/login")).Post("/username_password_login", handler.usernamePasswordLogin)

		// Authenticated only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated(handler.sessions, "/"))
			r.Get("/setup_2fa", handler.setupTwoFactorForm)
			r.Post("/setup_2fa", handler.setupTwoFactor)
		})
	})

	return router
}

// recordLoginMethod exposes the login method of the session to the access log.
func (handler *Handler) recordLoginMethod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if identity, ok := session.FromContext(request.Context()).Identity(); ok {
			ctxutil.SetLoginMethod(request.Context(), identity.Method)
		}
		next.ServeHTTP(writer, request)
	})
}

// limitForm rate-limits an HTML form post. Rejected posts are sent back to
// the form with a flash.
func (handler *Handler) limitForm(formPath string) func(http.Handler) http.Handler {
	if handler.limiter == nil {
		return passThrough
	}
	return handler.limiter.Guard(func(writer http.ResponseWriter, request *http.Request) {
		handler.flashRedirect(writer, request, session.FlashError, apperr.RateLimited().Message, formPath)
	})
}

// limitJSON rate-limits a JSON endpoint with a 429 body.
func (handler *Handler) limitJSON(next http.Handler) http.Handler {
	if handler.limiter == nil {
		return next
	}
	return handler.limiter.Middleware(next)
}

func passThrough(next http.Handler) http.Handler { return next }
