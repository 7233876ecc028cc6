// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/ctxutil"
	"github.com/mahirlabib/credo/internal/platform/ratelimit"
	"github.com/mahirlabib/credo/internal/platform/respond"
	"github.com/mahirlabib/credo/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.TokenService], allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString string, kind sec.TokenKind) (string, error)
}

// Authenticate resolves the caller's identity from the access token.
//
// # Flow
//  1. Read the accessToken cookie; fall back to 'Authorization: Bearer'.
//  2. If neither is present, the request proceeds as anonymous.
//  3. If present, verify signature/expiry/kind via [TokenVerifier].
//  4. Inject the subject id into the request context for downstream use.
//
// Expired or invalid tokens reject the request here rather than falling
// through as anonymous, so protected handlers can trust an empty subject to
// mean "no token presented".
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			tokenString := ""

			// ── 1. Cookie Transport ───────────────────────────────────────────
			if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
				tokenString = cookie.Value
			}

			// ── 2. Header Fallback ────────────────────────────────────────────
			if tokenString == "" {
				authHeader := request.Header.Get("Authorization")
				if authHeader != "" {
					parts := strings.Split(authHeader, " ")
					if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
						respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
						return
					}
					tokenString = parts[1]
				}
			}

			// ── 3. Anonymous Access ───────────────────────────────────────────
			if tokenString == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 4. Token Verification ─────────────────────────────────────────
			subjectID, err := verifier.Verify(tokenString, sec.TokenKindAccess)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithSubjectID(request.Context(), subjectID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetSubjectID(request.Context()) == "" {
			respond.Error(writer, request, apperr.Unauthorized("Unauthorized, please login first"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RateLimitGate applies the fixed-window limiter keyed by client address.
//
// # Contract
//
// Every response passing through the gate carries the X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset headers. A denied request
// returns 429 with a retryAfter hint and touches no further state.
//
// The gate fails open when the limiter's backing store errors: availability
// of sign-in beats strict accounting when Redis is briefly down.
func RateLimitGate(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			clientIP := RealIP(request)

			result, err := limiter.Check(request.Context(), clientIP)
			if err != nil {
				logger := ctxutil.GetLogger(request.Context())
				logger.ErrorContext(request.Context(), "rate_limit_store_unavailable", "error", err.Error())
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Set(constants.HeaderRateLimitLimit, strconv.Itoa(limiter.Max()))
			header.Set(constants.HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
			header.Set(constants.HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				respond.Error(writer, request, apperr.RateLimited(result.RetryAfterSeconds(time.Now())))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
