// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// It ensures that every response (Success or Error) across the entire application
// follows a strict, predictable JSON envelope structure. This consistency is
// crucial for mobile apps and frontend SPAs to parse data robustly.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/ctxutil"
)

// Envelope is the canonical JSON body for every API response.
//
// # Contract
//
// Success responses carry the payload under "data"; failures echo the HTTP
// status under "statusCode" with a client-safe "message". Field-level
// validation detail is the only error information beyond the message.
type Envelope struct {
	Success    bool                `json:"success"`
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Data       interface{}         `json:"data,omitempty"`
	Details    []apperr.FieldError `json:"details,omitempty"`
	RetryAfter int                 `json:"retryAfter,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 response with a message and optional data payload.
func OK(writer http.ResponseWriter, message string, data interface{}) {
	JSON(writer, http.StatusOK, Envelope{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
	})
}

// Created writes a 201 response with a message and the created resource.
func Created(writer http.ResponseWriter, message string, data interface{}) {
	JSON(writer, http.StatusCreated, Envelope{
		Success:    true,
		StatusCode: http.StatusCreated,
		Message:    message,
		Data:       data,
	})
}

// Error converts any Go error into a standardized JSON API error response.
//
// Unexpected (non-AppError) failures are logged with full detail server-side
// and collapsed to a generic INTERNAL_ERROR for the client.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.RetryAfterSeconds > 0 {
		writer.Header().Set("Retry-After", strconv.Itoa(appError.RetryAfterSeconds))
	}

	JSON(writer, appError.HTTPStatus, Envelope{
		Success:    false,
		StatusCode: appError.HTTPStatus,
		Message:    appError.Message,
		Details:    appError.Details,
		RetryAfter: appError.RetryAfterSeconds,
	})
}
