// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/ctxutil"
	"github.com/letsworkapps/authportal/internal/platform/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestRequestID_GeneratesAndPropagates checks both the generated and client-supplied paths.
*/
func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	// 1. Generated when absent
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))

	// 2. Client value is kept
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "abc-123", seen)
}

/*
TestRateLimiter_BlocksAfterBurst verifies the token bucket is enforced per IP.
*/
func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 0.0001, 2)
	handler := limiter.Middleware(okHandler())

	statuses := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodPost, "/username_password_login", nil)
		request.RemoteAddr = "10.0.0.1:5555"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		statuses = append(statuses, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// Another client still has a full bucket
	request := httptest.NewRequest(http.MethodPost, "/username_password_login", nil)
	request.RemoteAddr = "10.0.0.2:5555"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestPanicRecovery_Returns500 ensures a panicking handler never kills the server.
*/
func TestPanicRecovery_Returns500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_SERVER_ERROR")
}

type stubChecker bool

func (s stubChecker) IsAuthenticated(*http.Request) bool { return bool(s) }

/*
TestRequireAuthenticated redirects anonymous sessions and passes authenticated ones.
*/
func TestRequireAuthenticated(t *testing.T) {
	tests := []struct {
		name       string
		checker    stubChecker
		wantStatus int
	}{
		{"anonymous", false, http.StatusSeeOther},
		{"authenticated", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireAuthenticated(tt.checker, "/")(okHandler())
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/setup_2fa", nil))
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

/*
TestSecurityHeaders checks HSTS is only sent for secure deployments.
*/
func TestSecurityHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	middleware.SecurityHeaders(false)(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Empty(t, recorder.Header().Get("Strict-Transport-Security"))

	recorder = httptest.NewRecorder()
	middleware.SecurityHeaders(true)(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, recorder.Header().Get("Strict-Transport-Security"))
}

/*
TestRealIP uses the socket address and ignores client-supplied forwarding headers.
*/
func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", middleware.RealIP(request))

	request.Header.Set(constants.HeaderXForwardedFor, "203.0.113.5, 10.0.0.1")
	request.Header.Set(constants.HeaderXRealIP, "198.51.100.7")
	assert.Equal(t, "192.0.2.1", middleware.RealIP(request))
}

/*
TestRateLimiter_ForwardingHeadersShareBucket verifies rotating X-Forwarded-For
values from one connection address cannot obtain fresh buckets.
*/
func TestRateLimiter_ForwardingHeadersShareBucket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.NewRateLimiter(ctx, 0.001, 1).Middleware(okHandler())

	allowed := 0
	for i := range 50 {
		request := httptest.NewRequest(http.MethodPost, "/username_password_login", nil)
		request.RemoteAddr = "192.0.2.10:4000"
		request.Header.Set(constants.HeaderXForwardedFor, fmt.Sprintf("203.0.113.%d", i))
		request.Header.Set(constants.HeaderXRealIP, fmt.Sprintf("198.51.100.%d", i))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

/*
TestRateLimiter_Guard verifies rejected requests get the caller's response.
*/
func TestRateLimiter_Guard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 0.001, 1)
	handler := limiter.Guard(func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, "/login", http.StatusFound)
	})(okHandler())

	codes := make([]int, 0, 2)
	for range 2 {
		request := httptest.NewRequest(http.MethodPost, "/username_password_login", nil)
		request.RemoteAddr = "192.0.2.11:4000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusFound}, codes)
}

/*
TestTrustedProxies resolves the client address only behind a configured proxy.
*/
func TestTrustedProxies(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	var seen string
	capture := http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = middleware.RealIP(request)
	})

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"nothing trusted", nil, "10.0.0.5:80", "203.0.113.5", "", "10.0.0.5"},
		{"untrusted peer", trusted, "192.0.2.1:80", "203.0.113.5", "", "192.0.2.1"},
		{"trusted peer", trusted, "10.0.0.5:80", "203.0.113.5", "", "203.0.113.5"},
		{"spoofed leftmost hop", trusted, "10.0.0.5:80", "198.51.100.9, 203.0.113.5, 10.0.0.7", "", "203.0.113.5"},
		{"real ip fallback", trusted, "10.0.0.5:80", "", "203.0.113.8", "203.0.113.8"},
		{"garbage header", trusted, "10.0.0.5:80", "not-an-ip", "", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				request.Header.Set(constants.HeaderXForwardedFor, tt.forwarded)
			}
			if tt.realIP != "" {
				request.Header.Set(constants.HeaderXRealIP, tt.realIP)
			}

			middleware.TrustedProxies(tt.trusted)(capture).ServeHTTP(httptest.NewRecorder(), request)
			assert.Equal(t, tt.want, seen)
		})
	}
}
