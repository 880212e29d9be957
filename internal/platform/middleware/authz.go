// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
)

// SessionChecker reports whether the browser behind a request holds an
// authenticated session.
//
// # Why an interface?
//
// Defining SessionChecker here decouples the middleware from the session
// package, allowing us to inject stubs during unit testing.
type SessionChecker interface {
	IsAuthenticated(request *http.Request) bool
}

// RequireAuthenticated redirects anonymous browsers to fallback.
//
// # Flow
//  1. Ask the [SessionChecker] whether the session is authenticated.
//  2. If not, answer 303 See Other to fallback.
//  3. Otherwise continue down the chain.
func RequireAuthenticated(checker SessionChecker, fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !checker.IsAuthenticated(request) {
				http.Redirect(writer, request, fallback, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
