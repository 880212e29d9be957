// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/metrics"
	requestutil "github.com/letsworkapps/authportal/internal/platform/request"
	"github.com/letsworkapps/authportal/internal/platform/respond"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/users/account"
)

// fieldToken is the TOTP code field of the setup form.
const fieldToken = "token"

// # Request Payloads

type checkUsernameRequest struct {
	Username string `json:"username"`
}

type checkUsernameResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// index renders the landing page.
//
// GET /
func (handler *Handler) index(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, pageIndex, pageData{Title: "Home"})
}

// registerForm renders the registration page.
//
// GET /register
func (handler *Handler) registerForm(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, pageRegister, pageData{Title: "Register"})
}

/*
register creates a local account.

POST /register

Request:
  - Form: username, password, display_name

Response:
  - 302 /login:    Account created
  - 302 /register: Validation failure or duplicate username (flash)
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	form, err := requestutil.Form(writer, request)
	if err != nil {
		handler.flashRedirect(writer, request, session.FlashError, err.Error(), "/register")
		return
	}

	user, err := handler.accounts.Register(ctx, account.RegisterInput{
		Username:    form.Get(account.FieldUsername),
		Password:    form.Get(account.FieldPassword),
		DisplayName: form.Get(account.FieldDisplayName),
	})
	if err != nil {
		sess := session.FromContext(ctx)

		switch {
		case errors.Is(err, account.ErrValidation):
			handler.metrics.Registration(metrics.OutcomeRejected)
			for _, message := range apperr.Messages(err) {
				sess.AddFlash(session.FlashError, message)
			}
		case errors.Is(err, account.ErrDuplicateUsername):
			handler.metrics.Registration(metrics.OutcomeRejected)
			sess.AddFlash(session.FlashError, account.ErrDuplicateUsername.Message)
		default:
			handler.metrics.Registration(metrics.OutcomeError)
			ctxutil.GetLogger(ctx).Error("registration_failed", slog.Any("error", err))
			sess.AddFlash(session.FlashError, "An error occurred during registration. Please try again.")
		}

		handler.redirect(writer, request, "/register")
		return
	}

	handler.metrics.Registration(metrics.OutcomeSuccess)
	ctxutil.GetLogger(ctx).Info("registration_succeeded", slog.Int64("user_id", user.ID))
	handler.flashRedirect(writer, request, session.FlashSuccess, "Registration successful! Please log in.", "/login")
}

/*
checkUsername reports whether a username is taken.

POST /check_username

Request:
  - Body: {"username": "..."}

Response:
  - 200: {"success": true}  Username exists
  - 404: {"success": false} Username is free
  - 400: Empty or unreadable input
  - 500: Store failure
*/
func (handler *Handler) checkUsername(writer http.ResponseWriter, request *http.Request) {
	var input checkUsernameRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.JSON(writer, http.StatusBadRequest, checkUsernameResponse{Message: "Invalid request"})
		return
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		respond.JSON(writer, http.StatusBadRequest, checkUsernameResponse{Message: "Username is required"})
		return
	}

	exists, err := handler.accounts.Exists(request.Context(), username)
	if err != nil {
		ctxutil.GetLogger(request.Context()).Error("check_username_failed", slog.Any("error", err))
		respond.JSON(writer, http.StatusInternalServerError, checkUsernameResponse{Message: "An error occurred while checking the username"})
		return
	}

	if !exists {
		respond.JSON(writer, http.StatusNotFound, checkUsernameResponse{Message: "Username not found"})
		return
	}

	respond.OK(writer, checkUsernameResponse{Success: true, Message: "Username exists"})
}

// loginForm renders the login page. Signed-in browsers go home.
//
// GET /login
func (handler *Handler) loginForm(writer http.ResponseWriter, request *http.Request) {
	if session.FromContext(request.Context()).IsAuthenticated() {
		handler.redirect(writer, request, "/")
		return
	}
	handler.render(writer, request, pageLogin, pageData{Title: "Login"})
}

/*
usernamePasswordLogin authenticates against the local account store.

POST /username_password_login

Request:
  - Form: username, password

Response:
  - 302 /:      Signed in
  - 302 /login: Missing input or invalid credentials (flash)
*/
func (handler *Handler) usernamePasswordLogin(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	form, err := requestutil.Form(writer, request)
	if err != nil {
		handler.flashRedirect(writer, request, session.FlashError, err.Error(), "/login")
		return
	}

	username := strings.TrimSpace(form.Get(account.FieldUsername))
	password := form.Get(account.FieldPassword)
	if username == "" || password == "" {
		handler.metrics.LoginAttempt(constants.LoginMethodLocal, metrics.OutcomeRejected)
		handler.flashRedirect(writer, request, session.FlashError, "Please enter both username and password.", "/login")
		return
	}

	user, err := handler.accounts.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			handler.metrics.LoginAttempt(constants.LoginMethodLocal, metrics.OutcomeFailure)
			logger.Info("login_failed", slog.String("method", constants.LoginMethodLocal))
			handler.flashRedirect(writer, request, session.FlashError, account.ErrInvalidCredentials.Message, "/login")
			return
		}

		handler.metrics.LoginAttempt(constants.LoginMethodLocal, metrics.OutcomeError)
		logger.Error("login_error", slog.Any("error", err))
		handler.flashRedirect(writer, request, session.FlashError, genericFailure, "/login")
		return
	}

	userID := user.ID
	sess := session.FromContext(ctx)
	sess.Authenticate(session.Authenticated{
		Method:      constants.LoginMethodLocal,
		SubjectID:   user.Username,
		Email:       user.Username,
		DisplayName: user.DisplayName,
		UserID:      &userID,
	})
	handler.accounts.RecordLogin(ctx, user)

	ctxutil.SetLoginMethod(ctx, constants.LoginMethodLocal)
	handler.metrics.LoginAttempt(constants.LoginMethodLocal, metrics.OutcomeSuccess)
	logger.Info("login_succeeded", slog.String("method", constants.LoginMethodLocal), slog.Int64("user_id", user.ID))

	handler.flashRedirect(writer, request, session.FlashSuccess, "Login successful!", "/")
}

/*
logout ends the session.

GET /logout

Federated sessions are routed through /azure_logout so the provider session
is torn down too. Every other session is cleared directly.
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	if identity, ok := sess.Identity(); ok && identity.Method == constants.LoginMethodFederated {
		handler.redirect(writer, request, "/azure_logout")
		return
	}

	sess.ClearPreservingMessages()
	handler.flashRedirect(writer, request, session.FlashSuccess, "You have been logged out successfully.", "/login")
}
