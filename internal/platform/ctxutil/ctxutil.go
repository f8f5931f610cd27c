// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil carries per-request values (correlation ID, logger and
// authenticated principal) through [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/taskflow/internal/platform/sec"
)

// contextKey is unexported so no other package can read or overwrite these values.
type contextKey int

const (
	requestIDKey contextKey = iota
	loggerKey
	principalKey
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithAuthUser returns a new context with the authenticated principal attached.
func WithAuthUser(ctx context.Context, principal *sec.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetAuthUser retrieves the [*sec.Principal] from the [context.Context].
// It returns nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.Principal {
	principal, ok := ctx.Value(principalKey).(*sec.Principal)
	if !ok {
		return nil
	}
	return principal
}
