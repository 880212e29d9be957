// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page template names.
const (
	pageIndex     = "index.html"
	pageLogin     = "login.html"
	pageRegister  = "register.html"
	pageTwoFactor = "setup_2fa.html"
)

// genericFailure is shown for errors that carry no client-safe message.
const genericFailure = "Something went wrong. Please try again."

type pages struct {
	byName map[string]*template.Template
}

func parsePages() (*pages, error) {
	parsed := &pages{byName: make(map[string]*template.Template)}
	for _, name := range []string{pageIndex, pageLogin, pageRegister, pageTwoFactor} {
		page, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("web_template_parse_failed: %s: %w", name, err)
		}
		parsed.byName[name] = page
	}
	return parsed, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// pageData is the model shared by every template.
type pageData struct {
	Title             string
	Identity          *session.Authenticated
	Flashes           []session.Flash
	FederationEnabled bool
	TwoFactorVerified bool

	// setup_2fa
	QRCode     template.URL
	OTPAuthURI string
}

// render pops pending flashes into data, saves the session and writes the page.
func (handler *Handler) render(writer http.ResponseWriter, request *http.Request, name string, data pageData) {
	ctx := request.Context()
	sess := session.FromContext(ctx)

	if identity, ok := sess.Identity(); ok {
		data.Identity = &identity
	}
	data.Flashes = sess.PopFlashes()
	data.FederationEnabled = handler.provider != nil
	data.TwoFactorVerified = sess.TwoFactor().Verified

	var buffer bytes.Buffer
	if err := handler.pages.byName[name].ExecuteTemplate(&buffer, "layout", data); err != nil {
		ctxutil.GetLogger(ctx).Error("web_template_render_failed", slog.String("page", name), slog.Any("error", err))
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if !handler.saveSession(writer, request, sess) {
		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Cache-Control", "no-store")
	_, _ = buffer.WriteTo(writer)
}

// redirect saves the session and answers 302 Found to target.
func (handler *Handler) redirect(writer http.ResponseWriter, request *http.Request, target string) {
	if !handler.saveSession(writer, request, session.FromContext(request.Context())) {
		return
	}
	http.Redirect(writer, request, target, http.StatusFound)
}

// flashRedirect queues a flash message and redirects.
func (handler *Handler) flashRedirect(writer http.ResponseWriter, request *http.Request, category, message, target string) {
	session.FromContext(request.Context()).AddFlash(category, message)
	handler.redirect(writer, request, target)
}

func (handler *Handler) saveSession(writer http.ResponseWriter, request *http.Request, sess *session.Session) bool {
	if err := handler.sessions.Save(request.Context(), writer, sess); err != nil {
		ctxutil.GetLogger(request.Context()).Error("session_save_failed", slog.Any("error", err))
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}
