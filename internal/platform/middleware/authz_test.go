// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/ctxutil"
	"github.com/mahirlabib/credo/internal/platform/ratelimit"
	"github.com/mahirlabib/credo/internal/platform/sec"
)

// fakeVerifier accepts a single token string and maps it to a subject id.
type fakeVerifier struct {
	token   string
	subject string
}

func (f *fakeVerifier) Verify(tokenString string, kind sec.TokenKind) (string, error) {
	if kind != sec.TokenKindAccess || tokenString != f.token {
		return "", errors.New("invalid token")
	}
	return f.subject, nil
}

// subjectEcho writes the resolved subject id so tests can observe it.
func subjectEcho() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(ctxutil.GetSubjectID(request.Context())))
	})
}

func TestAuthenticate(t *testing.T) {
	verifier := &fakeVerifier{token: "good-token", subject: "subject-1"}
	handler := Authenticate(verifier)(subjectEcho())

	t.Run("no token proceeds as anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, recorder.Body.String())
	})

	t.Run("cookie token resolves the subject", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "good-token"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "subject-1", recorder.Body.String())
	})

	t.Run("bearer header resolves the subject", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer good-token")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "subject-1", recorder.Body.String())
	})

	t.Run("malformed authorization header is rejected", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("invalid token is rejected rather than anonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "expired-token"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	verifier := &fakeVerifier{token: "good-token", subject: "subject-1"}
	handler := Authenticate(verifier)(RequireAuth(subjectEcho()))

	t.Run("anonymous requests are blocked", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Unauthorized, please login first")
	})

	t.Run("authenticated requests pass", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer good-token")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestRateLimitGate(t *testing.T) {
	newGated := func(max int) http.Handler {
		limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), max, time.Minute)
		return RateLimitGate(limiter)(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
	}

	send := func(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/", nil)
		request.RemoteAddr = remoteAddr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	t.Run("stamps the quota headers and denies past the limit", func(t *testing.T) {
		handler := newGated(2)

		first := send(handler, "10.0.0.1:1111")
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get(constants.HeaderRateLimitLimit))
		assert.Equal(t, "1", first.Header().Get(constants.HeaderRateLimitRemaining))
		assert.NotEmpty(t, first.Header().Get(constants.HeaderRateLimitReset))

		second := send(handler, "10.0.0.1:1111")
		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "0", second.Header().Get(constants.HeaderRateLimitRemaining))

		third := send(handler, "10.0.0.1:1111")
		assert.Equal(t, http.StatusTooManyRequests, third.Code)
		assert.NotEmpty(t, third.Header().Get("Retry-After"))
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		handler := newGated(1)

		require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:1111").Code)
		require.Equal(t, http.StatusTooManyRequests, send(handler, "10.0.0.1:2222").Code)
		assert.Equal(t, http.StatusOK, send(handler, "10.0.0.2:1111").Code)
	})
}
