// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	requestutil "github.com/letsworkapps/authportal/internal/platform/request"
	"github.com/letsworkapps/authportal/internal/platform/validate"
	"github.com/letsworkapps/authportal/internal/session"
)

// tokenPattern is the shape of a code shown by an authenticator app.
var tokenPattern = regexp.MustCompile(`^[0-9]{6}$`)

const invalidTokenMessage = "Invalid token. Please try again."

// setupTwoFactorForm shows the QR code of the session's TOTP secret,
// generating the secret on first visit.
//
// GET /setup_2fa
func (handler *Handler) setupTwoFactorForm(writer http.ResponseWriter, request *http.Request) {
	handler.renderTwoFactor(writer, request)
}

/*
setupTwoFactor confirms the secret with a code from the authenticator app.

POST /setup_2fa

Request:
  - Form: token

Response:
  - 302 /: Code valid, second factor verified
  - 200:   Code invalid, page rendered again with a flash
*/
func (handler *Handler) setupTwoFactor(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	sess := session.FromContext(ctx)

	form, err := requestutil.Form(writer, request)
	if err != nil {
		handler.flashRedirect(writer, request, session.FlashError, err.Error(), "/setup_2fa")
		return
	}

	enrolment := sess.TwoFactor()
	if enrolment.Secret == "" {
		handler.redirect(writer, request, "/setup_2fa")
		return
	}

	token := strings.TrimSpace(form.Get(fieldToken))
	malformed := (&validate.Validator{}).Matches(fieldToken, token, tokenPattern, invalidTokenMessage).HasErrors()
	if malformed || !handler.authenticator.Validate(enrolment.Secret, token) {
		ctxutil.GetLogger(ctx).Info("two_factor_code_rejected", slog.Bool("malformed", malformed))
		sess.AddFlash(session.FlashError, invalidTokenMessage)
		handler.renderTwoFactor(writer, request)
		return
	}

	enrolment.Verified = true
	sess.SetTwoFactor(enrolment)
	ctxutil.GetLogger(ctx).Info("two_factor_verified")

	handler.flashRedirect(writer, request, session.FlashSuccess, "Two-factor authentication is set up.", "/")
}

func (handler *Handler) renderTwoFactor(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	sess := session.FromContext(ctx)

	identity, _ := sess.Identity()
	accountName := identity.Email
	if accountName == "" {
		accountName = identity.SubjectID
	}

	enrolment := sess.TwoFactor()
	if enrolment.Secret == "" {
		secret, err := handler.authenticator.NewSecret(accountName)
		if err != nil {
			ctxutil.GetLogger(ctx).Error("two_factor_secret_failed", slog.Any("error", err))
			handler.flashRedirect(writer, request, session.FlashError, genericFailure, "/")
			return
		}
		enrolment.Secret = secret
		sess.SetTwoFactor(enrolment)
	}

	provisioning, err := handler.authenticator.Enrol(enrolment.Secret, accountName)
	if err != nil {
		ctxutil.GetLogger(ctx).Error("two_factor_enrol_failed", slog.Any("error", err))
		handler.flashRedirect(writer, request, session.FlashError, genericFailure, "/")
		return
	}

	handler.render(writer, request, pageTwoFactor, pageData{
		Title:      "Set up two-factor authentication",
		QRCode:     template.URL("data:image/png;base64," + provisioning.QRCode),
		OTPAuthURI: provisioning.URI,
	})
}
