// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package federated

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/sec"
)

const (
	// defaultHTTPTimeout bounds discovery, JWKS and token requests.
	defaultHTTPTimeout = 10 * time.Second
	// randomLength is the byte length of state and nonce values.
	randomLength = 32
	// legacyLogoutPath is appended to the authority when discovery publishes
	// no end_session_endpoint.
	legacyLogoutPath = "/oauth2/v2.0/logout"
)

// requiredScopes are always requested so the provider returns an ID token.
var requiredScopes = []string{oidc.ScopeOpenID, "profile"}

// Provider performs the authorization-code flow against one identity provider.
type Provider struct {
	config     Config
	httpClient *http.Client

	mu         sync.Mutex
	discovered *discovery
}

// discovery caches the outcome of OIDC discovery.
type discovery struct {
	oauth2Config       *oauth2.Config
	verifier           *oidc.IDTokenVerifier
	endSessionEndpoint string
}

// Option configures a [Provider].
type Option func(*Provider)

// WithHTTPClient sets the client used for discovery, JWKS and token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// New creates a Provider. No network call happens until the first flow.
func New(config Config, opts ...Option) (*Provider, error) {
	if config.ClientID == "" || config.Authority == "" {
		return nil, ErrNotConfigured
	}
	if config.RedirectURL == "" {
		return nil, errors.New("federated: redirect URL is required")
	}
	if config.Issuer == "" {
		config.Issuer = strings.TrimSuffix(config.Authority, "/") + "/v2.0"
	}

	p := &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// discover runs OIDC discovery once and caches the result. Failures are not
// cached, so a later request retries.
func (p *Provider) discover(ctx context.Context) (*discovery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.discovered != nil {
		return p.discovered, nil
	}

	oidcProvider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), p.config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("federated: failed to discover OIDC endpoints: %w", err)
	}

	var metadata struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := oidcProvider.Claims(&metadata); err != nil {
		return nil, fmt.Errorf("federated: failed to read provider metadata: %w", err)
	}

	// Credentials go in the request body for consistent behavior across providers.
	endpoint := oidcProvider.Endpoint()
	p.discovered = &discovery{
		oauth2Config: &oauth2.Config{
			ClientID:     p.config.ClientID,
			ClientSecret: p.config.ClientSecret,
			RedirectURL:  p.config.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoint.AuthURL,
				TokenURL:  endpoint.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		verifier:           oidcProvider.Verifier(&oidc.Config{ClientID: p.config.ClientID}),
		endSessionEndpoint: metadata.EndSessionEndpoint,
	}

	ctxutil.GetLogger(ctx).Debug("oidc_provider_discovered",
		slog.String("issuer", p.config.Issuer),
		slog.Bool("end_session_endpoint", metadata.EndSessionEndpoint != ""),
	)

	return p.discovered, nil
}

/*
Begin starts an authorization-code flow.

Description: Generates state, nonce and a PKCE verifier, then builds the
authorization URL. The returned FlowState must be stored by the caller and
handed back unchanged to [Provider.Complete].

Parameters:
  - ctx: context.Context
  - scopes: additional scopes; openid and profile are always added

Returns:
  - string: The authorization URL to redirect the browser to
  - FlowState: The pending flow
  - error: Discovery or randomness failures
*/
func (p *Provider) Begin(ctx context.Context, scopes []string) (string, FlowState, error) {
	disc, err := p.discover(ctx)
	if err != nil {
		return "", FlowState{}, err
	}

	state, err := sec.GenerateSecureToken(randomLength)
	if err != nil {
		return "", FlowState{}, err
	}
	nonce, err := sec.GenerateSecureToken(randomLength)
	if err != nil {
		return "", FlowState{}, err
	}

	flow := FlowState{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: oauth2.GenerateVerifier(),
		Scopes:       withRequiredScopes(scopes),
		RedirectURI:  p.config.RedirectURL,
	}

	config := *disc.oauth2Config
	config.Scopes = flow.Scopes
	config.RedirectURL = flow.RedirectURI

	flow.AuthURI = config.AuthCodeURL(flow.State,
		oidc.Nonce(flow.Nonce),
		oauth2.S256ChallengeOption(flow.CodeVerifier),
	)

	return flow.AuthURI, flow, nil
}

/*
Complete finishes the flow started by [Provider.Begin].

Description: Validates the callback parameters against flow, redeems the
authorization code, verifies the ID token and normalizes its claims.

Parameters:
  - ctx: context.Context
  - flow: The FlowState returned by Begin
  - params: The query parameters of the callback request

Returns:
  - *Claims: The normalized identity
  - error: ErrProvider, ErrCSRFMismatch or ErrMalformedResponse
*/
func (p *Provider) Complete(ctx context.Context, flow FlowState, params url.Values) (*Claims, error) {

	// ── 1. State must match the pending flow ──
	state := params.Get("state")
	if flow.State == "" || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(flow.State)) != 1 {
		return nil, ErrCSRFMismatch
	}

	// ── 2. Provider-reported error ──
	if code := params.Get("error"); code != "" {
		return nil, providerError(code, params.Get("error_description"))
	}

	authCode := params.Get("code")
	if authCode == "" {
		return nil, ErrMalformedResponse
	}

	disc, err := p.discover(ctx)
	if err != nil {
		return nil, ErrProvider.WithCause(err)
	}

	// ── 3. Redeem the code ──
	config := *disc.oauth2Config
	config.Scopes = flow.Scopes
	config.RedirectURL = flow.RedirectURI

	token, err := config.Exchange(oidc.ClientContext(ctx, p.httpClient), authCode,
		oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, providerError(retrieveErr.ErrorCode, retrieveErr.ErrorDescription).WithCause(err)
		}
		return nil, ErrProvider.WithCause(fmt.Errorf("federated: token exchange failed: %w", err))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMalformedResponse
	}

	// ── 4. Verify the ID token ──
	idToken, err := disc.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), rawIDToken)
	if err != nil {
		return nil, ErrProvider.WithCause(fmt.Errorf("federated: id token verification failed: %w", err))
	}

	if idToken.Nonce == "" || subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(flow.Nonce)) != 1 {
		return nil, ErrCSRFMismatch
	}

	// ── 5. Normalize ──
	var raw idTokenClaims
	if err := idToken.Claims(&raw); err != nil {
		return nil, ErrMalformedResponse.WithCause(err)
	}

	return normalize(raw, rawIDToken)
}

// LogoutURL builds the provider sign-out URL. It prefers the discovered
// end_session_endpoint and falls back to the Azure AD v2 logout path.
func (p *Provider) LogoutURL(postLogoutRedirect, idTokenHint string) string {
	endpoint := strings.TrimSuffix(p.config.Authority, "/") + legacyLogoutPath

	p.mu.Lock()
	if p.discovered != nil && p.discovered.endSessionEndpoint != "" {
		endpoint = p.discovered.endSessionEndpoint
	}
	p.mu.Unlock()

	query := url.Values{}
	query.Set("post_logout_redirect_uri", postLogoutRedirect)
	if idTokenHint != "" {
		query.Set("id_token_hint", idTokenHint)
	}

	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	return endpoint + separator + query.Encode()
}

// withRequiredScopes returns scopes with openid and profile first, without duplicates.
func withRequiredScopes(scopes []string) []string {
	result := slices.Clone(requiredScopes)
	for _, scope := range scopes {
		if scope != "" && !slices.Contains(result, scope) {
			result = append(result, scope)
		}
	}
	return result
}

// providerError surfaces the provider's own message to the user.
func providerError(code, description string) *apperr.AppError {
	message := "Authentication Error: " + code
	if description != "" {
		message += " - " + description
	}
	return ErrProvider.WithMessage(message)
}
