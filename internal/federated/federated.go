// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package federated implements enterprise single sign-on against an OpenID
Connect identity provider (Azure AD / Entra ID in production).

The exchange has two phases:

  - Begin builds the authorization-code request and returns the [FlowState]
    the caller must keep server side.
  - Complete validates the provider callback against that FlowState, redeems
    the code and normalizes the ID token into [Claims].

Discovery runs lazily on first use and is cached, so the portal starts even
when the identity provider is unreachable.

# Security

State, nonce and PKCE verifier are generated per flow. A mismatch of state or
nonce is reported as [ErrCSRFMismatch] and never ignored.
*/
package federated

import (
	"net/http"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
)

// # Errors

var (
	// ErrProvider means the identity provider answered with an error.
	ErrProvider = apperr.New("PROVIDER_ERROR", http.StatusBadGateway,
		"Authentication failed at the identity provider")

	// ErrMalformedResponse means the provider response lacked required data.
	ErrMalformedResponse = apperr.New("MALFORMED_RESPONSE", http.StatusBadGateway,
		"Failed to get user information from authentication response")

	// ErrCSRFMismatch means the callback does not belong to the pending flow.
	ErrCSRFMismatch = apperr.New("CSRF_MISMATCH", http.StatusBadRequest,
		"Your sign-in attempt expired or could not be verified. Please try again.")

	// ErrUnlinkedIdentity means no active local account matches the federated email.
	ErrUnlinkedIdentity = apperr.New("UNLINKED_FEDERATED_IDENTITY", http.StatusForbidden,
		"Your enterprise account is not linked to a local account. Please contact an administrator.")

	// ErrAccountDisabled is the variant of ErrUnlinkedIdentity for inactive local accounts.
	ErrAccountDisabled = ErrUnlinkedIdentity.WithMessage(
		"Your account is disabled. Please contact an administrator.")

	// ErrNotConfigured is returned when no client or authority is configured.
	ErrNotConfigured = apperr.New("FEDERATION_DISABLED", http.StatusNotFound,
		"Enterprise sign-in is not configured")
)

// # Types

// FlowState is the server-held record of one in-progress authorization-code
// exchange. It is persisted in the session between Begin and Complete.
type FlowState struct {
	State        string   `json:"state"`
	Nonce        string   `json:"nonce"`
	CodeVerifier string   `json:"code_verifier"`
	Scopes       []string `json:"scopes"`
	RedirectURI  string   `json:"redirect_uri"`
	AuthURI      string   `json:"auth_uri"`
}

// Claims is the normalized identity extracted from a validated ID token.
type Claims struct {
	// SubjectID is the provider's object id ("oid").
	SubjectID string
	// Email is the "preferred_username" claim.
	Email string
	// DisplayName is a best-effort first name.
	DisplayName string
	// IDToken is the raw token, kept as logout hint.
	IDToken string
}

// Config configures a [Provider].
type Config struct {
	ClientID     string
	ClientSecret string
	// Authority is the provider base URL, e.g. https://login.microsoftonline.com/<tenant>.
	Authority string
	// Issuer is the discovery issuer; typically Authority + "/v2.0".
	Issuer string
	// RedirectURL is the absolute callback URL registered with the provider.
	RedirectURL string
}
