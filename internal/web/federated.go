// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/letsworkapps/authportal/internal/federated"
	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/users/account"
)

/*
federatedLogin starts the authorization-code flow.

GET /azure_login

Response:
  - 302 <provider>: Flow recorded in the session
  - 302 /login:     Enterprise sign-in unavailable (flash)
*/
func (handler *Handler) federatedLogin(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	if handler.provider == nil {
		handler.flashRedirect(writer, request, session.FlashError, federated.ErrNotConfigured.Message, "/login")
		return
	}

	authURL, flow, err := handler.provider.Begin(ctx, handler.scopes)
	if err != nil {
		ctxutil.GetLogger(ctx).Error("federated_begin_failed", slog.Any("error", err))
		handler.flashRedirect(writer, request, session.FlashError, "Could not start enterprise sign-in. Please try again.", "/login")
		return
	}

	session.FromContext(ctx).StartFlow(flow)
	handler.redirect(writer, request, authURL)
}

/*
federatedCallback completes the flow started by federatedLogin.

GET <redirect path>

Description: The pending flow is consumed first, so the session never stays
FlowPending. The federated email must match an active local username exactly.
Every failure is flashed and followed by a forced provider logout, so a stale
provider session cannot silently sign the browser in again.

Response:
  - 302 /:             Signed in
  - 302 /azure_logout: Any failure (flash)
*/
func (handler *Handler) federatedCallback(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)
	sess := session.FromContext(ctx)

	if handler.provider == nil {
		handler.flashRedirect(writer, request, session.FlashError, federated.ErrNotConfigured.Message, "/login")
		return
	}

	// ── 1. Consume the pending flow ──
	flow, pending := sess.ConsumeFlow()
	if !pending {
		handler.federatedFailure(writer, request, nil, federated.ErrCSRFMismatch)
		return
	}

	// ── 2. Exchange the code ──
	started := time.Now()
	claims, err := handler.provider.Complete(ctx, flow, request.URL.Query())
	if err != nil {
		handler.metrics.ProviderExchange(metrics.OutcomeFailure, time.Since(started))
		handler.federatedFailure(writer, request, nil, err)
		return
	}
	handler.metrics.ProviderExchange(metrics.OutcomeSuccess, time.Since(started))

	// ── 3. Link to a local account ──
	user, err := handler.accounts.FindByUsername(ctx, claims.Email)
	switch {
	case errors.Is(err, account.ErrUserNotFound):
		handler.federatedFailure(writer, request, claims, federated.ErrUnlinkedIdentity)
		return
	case err != nil:
		handler.federatedFailure(writer, request, claims, err)
		return
	case !user.IsActive:
		handler.federatedFailure(writer, request, claims, federated.ErrAccountDisabled)
		return
	}

	// ── 4. Authenticate ──
	userID := user.ID
	sess.Authenticate(session.Authenticated{
		Method:      constants.LoginMethodFederated,
		SubjectID:   claims.SubjectID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		UserID:      &userID,
	})
	sess.SetFederated(session.FederatedHints{LastEmail: claims.Email, IDToken: claims.IDToken})
	handler.accounts.RecordLogin(ctx, user)

	ctxutil.SetLoginMethod(ctx, constants.LoginMethodFederated)
	handler.metrics.LoginAttempt(constants.LoginMethodFederated, metrics.OutcomeSuccess)
	logger.Info("login_succeeded", slog.String("method", constants.LoginMethodFederated), slog.Int64("user_id", user.ID))

	handler.flashRedirect(writer, request, session.FlashSuccess, "Successfully authenticated!", "/")
}

// federatedFailure flashes err and routes the browser through provider logout.
// claims is nil when the exchange itself failed.
func (handler *Handler) federatedFailure(writer http.ResponseWriter, request *http.Request, claims *federated.Claims, err error) {
	ctx := request.Context()
	sess := session.FromContext(ctx)

	message := genericFailure
	outcome := metrics.OutcomeError
	if appError := apperr.As(err); appError != nil && isFederatedError(err) {
		message = appError.Message
		outcome = metrics.OutcomeRejected
		ctxutil.GetLogger(ctx).Warn("federated_callback_failed", slog.String("code", appError.Code))
	} else {
		ctxutil.GetLogger(ctx).Error("federated_callback_failed", slog.Any("error", err))
	}
	handler.metrics.LoginAttempt(constants.LoginMethodFederated, outcome)

	hints := sess.Federated()
	if claims != nil {
		hints = session.FederatedHints{LastEmail: claims.Email, IDToken: claims.IDToken}
	}
	sess.SetFederated(hints)
	sess.AddFlash(session.FlashError, message)

	handler.redirect(writer, request, "/azure_logout")
}

// isFederatedError reports whether err is one of the provider-side failures
// whose message is safe to show.
func isFederatedError(err error) bool {
	return errors.Is(err, federated.ErrProvider) ||
		errors.Is(err, federated.ErrMalformedResponse) ||
		errors.Is(err, federated.ErrCSRFMismatch) ||
		errors.Is(err, federated.ErrUnlinkedIdentity)
}

/*
federatedLogout clears the session, keeping flashes, and signs out at the provider.

GET /azure_logout

Response:
  - 302 <provider logout>: post_logout_redirect_uri=<base>/login
  - 302 /login:            Enterprise sign-in unavailable
*/
func (handler *Handler) federatedLogout(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	hints := sess.Federated()
	wasAuthenticated := sess.IsAuthenticated()

	sess.ClearPreservingMessages()
	if wasAuthenticated {
		sess.AddFlash(session.FlashSuccess, "You have been logged out successfully.")
	}

	if handler.provider == nil {
		handler.redirect(writer, request, "/login")
		return
	}

	handler.redirect(writer, request, handler.provider.LogoutURL(handler.baseURL+"/login", hints.IDToken))
}
