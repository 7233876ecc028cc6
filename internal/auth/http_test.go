// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/ratelimit"
)

// newTestHandler mounts the full route tree over the in-memory fakes.
func newTestHandler(t *testing.T, env *testEnv) http.Handler {
	t.Helper()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 1000, constants.RateLimitWindow)
	handler := NewHandler(env.service, env.tokens, limiter, CookieConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	})
	return handler.Routes()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

// envelope mirrors the response wrapper for assertions.
type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func responseCookie(t *testing.T, recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestHandlerSignup(t *testing.T) {
	t.Run("creates an account", func(t *testing.T) {
		env := newTestEnv(t, baseTime)
		handler := newTestHandler(t, env)

		recorder := postJSON(t, handler, "/signup", map[string]string{
			"name":     "Alice",
			"email":    "alice@example.com",
			"password": "sw0rdf1sh!",
		})

		require.Equal(t, http.StatusCreated, recorder.Code)
		body := decodeEnvelope(t, recorder)
		assert.True(t, body.Success)
		assert.Equal(t, "User created successfully", body.Message)
	})

	t.Run("rejects an invalid payload with field details", func(t *testing.T) {
		env := newTestEnv(t, baseTime)
		handler := newTestHandler(t, env)

		recorder := postJSON(t, handler, "/signup", map[string]string{
			"name":     "",
			"email":    "not-an-email",
			"password": "short",
		})

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Invalid data received")
		assert.Contains(t, recorder.Body.String(), "password")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		env := newTestEnv(t, baseTime)
		handler := newTestHandler(t, env)
		env.register(t, "Alice", "alice@example.com", "sw0rdf1sh!")

		recorder := postJSON(t, handler, "/signup", map[string]string{
			"name":     "Imposter",
			"email":    "alice@example.com",
			"password": "other-pass",
		})

		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestHandlerVerificationFlow(t *testing.T) {
	env := newTestEnv(t, baseTime)
	handler := newTestHandler(t, env)

	// ── 1. Signup & Sign-In ───────────────────────────────────────────────
	recorder := postJSON(t, handler, "/signup", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "sw0rdf1sh!",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = postJSON(t, handler, "/signin", map[string]string{
		"email": "alice@example.com", "password": "sw0rdf1sh!",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OTP sent successfully", decodeEnvelope(t, recorder).Message)

	// ── 2. Verify the Dispatched Passcode ─────────────────────────────────
	recorder = postJSON(t, handler, "/verify-otp", map[string]string{
		"email":   "alice@example.com",
		"otpCode": env.notifier.lastCode(t),
		"otpType": string(OtpTypeEmailVerification),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	accessCookie := responseCookie(t, recorder, constants.AccessTokenCookieName)
	refreshCookie := responseCookie(t, recorder, constants.RefreshTokenCookieName)
	assert.True(t, accessCookie.HttpOnly)
	assert.NotEmpty(t, accessCookie.Value)
	assert.NotEmpty(t, refreshCookie.Value)

	// ── 3. Authenticated Profile Access via the Session Cookie ───────────
	request := httptest.NewRequest(http.MethodGet, "/my-profile", nil)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: accessCookie.Value})
	profileRecorder := httptest.NewRecorder()
	handler.ServeHTTP(profileRecorder, request)

	require.Equal(t, http.StatusOK, profileRecorder.Code)
	assert.Contains(t, profileRecorder.Body.String(), "alice@example.com")

	// ── 4. Token Rotation ─────────────────────────────────────────────────
	recorder = postJSON(t, handler, "/refresh-tokens", map[string]string{},
		&http.Cookie{Name: constants.RefreshTokenCookieName, Value: refreshCookie.Value})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, responseCookie(t, recorder, constants.AccessTokenCookieName).Value)

	// ── 5. Sign-Out ───────────────────────────────────────────────────────
	recorder = postJSON(t, handler, "/signout", map[string]string{},
		&http.Cookie{Name: constants.RefreshTokenCookieName, Value: refreshCookie.Value})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Less(t, responseCookie(t, recorder, constants.AccessTokenCookieName).MaxAge, 0)
}

func TestHandlerResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t, baseTime)
	handler := newTestHandler(t, env)
	env.registerVerified(t, "Alice", "alice@example.com", "sw0rdf1sh!")

	// ── 1. Request & Verify a Reset Passcode ──────────────────────────────
	recorder := postJSON(t, handler, "/request-otp", map[string]string{
		"email": "alice@example.com", "type": string(OtpTypePasswordReset),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = postJSON(t, handler, "/verify-otp", map[string]string{
		"email":   "alice@example.com",
		"otpCode": env.notifier.lastCode(t),
		"otpType": string(OtpTypePasswordReset),
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OTP verified successfully. Reset your password", decodeEnvelope(t, recorder).Message)

	tokenCookie := responseCookie(t, recorder, constants.ResetTokenCookieName)
	expiryCookie := responseCookie(t, recorder, constants.ResetExpiryCookieName)
	require.NotEmpty(t, tokenCookie.Value)

	// ── 2. Complete the Transaction ───────────────────────────────────────
	recorder = postJSON(t, handler, "/reset-password", map[string]string{
		"email":              "alice@example.com",
		"newPassword":        "n3w-sw0rdf1sh!",
		"confirmNewPassword": "n3w-sw0rdf1sh!",
	},
		&http.Cookie{Name: constants.ResetTokenCookieName, Value: tokenCookie.Value},
		&http.Cookie{Name: constants.ResetExpiryCookieName, Value: expiryCookie.Value},
	)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Password reset successfully", decodeEnvelope(t, recorder).Message)
	assert.Less(t, responseCookie(t, recorder, constants.ResetTokenCookieName).MaxAge, 0)

	// ── 3. Old Credentials No Longer Work ─────────────────────────────────
	recorder = postJSON(t, handler, "/signin", map[string]string{
		"email": "alice@example.com", "password": "sw0rdf1sh!",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = postJSON(t, handler, "/signin", map[string]string{
		"email": "alice@example.com", "password": "n3w-sw0rdf1sh!",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHandlerResetPasswordWithoutCookies(t *testing.T) {
	env := newTestEnv(t, baseTime)
	handler := newTestHandler(t, env)
	env.registerVerified(t, "Alice", "alice@example.com", "sw0rdf1sh!")

	recorder := postJSON(t, handler, "/reset-password", map[string]string{
		"email":              "alice@example.com",
		"newPassword":        "n3w-sw0rdf1sh!",
		"confirmNewPassword": "n3w-sw0rdf1sh!",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Reset password token has expired")
}

func TestHandlerProtectedRoutes(t *testing.T) {
	env := newTestEnv(t, baseTime)
	handler := newTestHandler(t, env)
	id := env.registerVerified(t, "Alice", "alice@example.com", "sw0rdf1sh!")

	accessToken, _, err := env.tokens.IssuePair(id)
	require.NoError(t, err)

	t.Run("my-profile requires a session", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/my-profile", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("delete-account validates the type", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodDelete, "/delete-account",
			bytes.NewReader([]byte(`{"type":"purge"}`)))
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("hard delete clears the session cookies", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodDelete, "/delete-account",
			bytes.NewReader([]byte(`{"type":"hard"}`)))
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "Account deleted successfully!", decodeEnvelope(t, recorder).Message)
		assert.Less(t, responseCookie(t, recorder, constants.AccessTokenCookieName).MaxAge, 0)

		_, err := env.accounts.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestHandlerReactivateAccount(t *testing.T) {
	env := newTestEnv(t, baseTime)
	handler := newTestHandler(t, env)
	id := env.registerVerified(t, "Alice", "alice@example.com", "sw0rdf1sh!")
	require.NoError(t, env.service.DeleteAccount(context.Background(), id, "soft"))

	accessToken, _, err := env.tokens.IssuePair(id)
	require.NoError(t, err)

	reactivate := func() *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPut, "/reactivate-account", nil)
		request.Header.Set("Authorization", "Bearer "+accessToken)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	// Inside the waiting window the request is refused.
	recorder := reactivate()
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	env.setNow(baseTime.Add(ReactivationWindow + time.Second))
	recorder = reactivate()
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Account has been reactivated", decodeEnvelope(t, recorder).Message)
	assert.False(t, env.accounts.mustGet(t, id).IsDeleted)
}
