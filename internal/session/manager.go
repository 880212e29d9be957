// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/sec"
)

type contextKey struct{}

// Manager binds sessions to requests: it reads the signed cookie, loads the
// payload from the [Store] and writes both back on [Manager.Save].
type Manager struct {
	store    Store
	signer   *sec.TokenSigner
	lifetime time.Duration
	secure   bool
}

// NewManager creates a Manager. Every save extends the session by lifetime.
func NewManager(store Store, signer *sec.TokenSigner, lifetime time.Duration, secure bool) *Manager {
	return &Manager{
		store:    store,
		signer:   signer,
		lifetime: lifetime,
		secure:   secure,
	}
}

// Middleware loads the session of every request into its context.
func (manager *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		sess := manager.Load(request)
		ctx := context.WithValue(request.Context(), contextKey{}, sess)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// FromContext returns the session loaded by [Manager.Middleware]. Without
// the middleware it returns a fresh anonymous session.
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(contextKey{}).(*Session); ok && sess != nil {
		return sess
	}
	return New()
}

// IsAuthenticated implements middleware.SessionChecker.
func (manager *Manager) IsAuthenticated(request *http.Request) bool {
	return FromContext(request.Context()).IsAuthenticated()
}

// Load resolves the session of request. Missing, forged, expired or
// unreadable sessions yield a fresh anonymous one.
func (manager *Manager) Load(request *http.Request) *Session {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil {
		return New()
	}

	id, err := manager.signer.Verify(cookie.Value)
	if err != nil {
		logger.Debug("session_cookie_rejected", slog.Any("error", err))
		return New()
	}

	payload, err := manager.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("session_load_failed", slog.Any("error", err))
		}
		return New()
	}

	sess, err := Decode(id, payload)
	if err != nil {
		logger.Warn("session_decode_failed", slog.Any("error", err))
		return New()
	}

	return sess
}

// Save persists sess and (re)issues its cookie. An untouched new session is
// not persisted, so visitors who never interact get no cookie.
func (manager *Manager) Save(ctx context.Context, writer http.ResponseWriter, sess *Session) error {
	if sess.isNew && !sess.modified {
		return nil
	}

	// ── 1. Drop the identifier replaced by a rotation ──
	if sess.previousID != "" {
		if err := manager.store.Delete(ctx, sess.previousID); err != nil {
			ctxutil.GetLogger(ctx).Warn("session_rotate_delete_failed", slog.Any("error", err))
		}
		sess.previousID = ""
	}

	if sess.id == "" {
		id, err := sec.GenerateSecureToken(constants.SessionIDLength)
		if err != nil {
			return fmt.Errorf("session_save_failed: %w", err)
		}
		sess.id = id
	}

	// ── 2. Persist payload ──
	payload, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := manager.store.Save(ctx, sess.id, payload, manager.lifetime); err != nil {
		return fmt.Errorf("session_save_failed: %w", err)
	}

	// ── 3. Issue the signed cookie ──
	token, err := manager.signer.Sign(sess.id, manager.lifetime)
	if err != nil {
		return fmt.Errorf("session_save_failed: %w", err)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(manager.lifetime.Seconds()),
		Expires:  time.Now().Add(manager.lifetime),
		HttpOnly: true,
		Secure:   manager.secure,
		SameSite: http.SameSiteLaxMode,
	})

	sess.isNew = false
	sess.modified = false
	return nil
}

// Ping checks the backing store.
func (manager *Manager) Ping(ctx context.Context) error {
	return manager.store.Ping(ctx)
}
