// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/mahirlabib/credo/internal/platform/ctxkey"
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

// # Identity & Access

// WithSubjectID returns a new context with the authenticated account id attached.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, subjectID)
}

// GetSubjectID retrieves the authenticated account id from the context.
// Returns an empty string for anonymous requests.
func GetSubjectID(ctx context.Context) string {
	subjectID, _ := ctx.Value(ctxkey.KeyUser).(string)
	return subjectID
}

// # Client Addressing

// WithClientIP returns a new context with the resolved client address attached.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClientIP, ip)
}

// GetClientIP retrieves the resolved client address from the context.
// Returns "unknown" if middleware has not resolved one.
func GetClientIP(ctx context.Context) string {
	ip, ok := ctx.Value(ctxkey.KeyClientIP).(string)
	if !ok || ip == "" {
		return "unknown"
	}
	return ip
}
