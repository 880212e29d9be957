// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/letsworkapps/authportal/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity

// LoginMethodRecorder is a mutable slot the request logger reads after the
// handler has run, so the final access-log line can carry the login method.
type LoginMethodRecorder struct {
	Method string
}

// WithLoginMethodRecorder attaches an empty [LoginMethodRecorder] to the context.
func WithLoginMethodRecorder(ctx context.Context) (context.Context, *LoginMethodRecorder) {
	recorder := &LoginMethodRecorder{}
	return context.WithValue(ctx, ctxkey.KeyLoginMethod, recorder), recorder
}

// SetLoginMethod records the login method of the session handling this request.
// It is a no-op when no recorder is attached.
func SetLoginMethod(ctx context.Context, method string) {
	if recorder, ok := ctx.Value(ctxkey.KeyLoginMethod).(*LoginMethodRecorder); ok {
		recorder.Method = method
	}
}
