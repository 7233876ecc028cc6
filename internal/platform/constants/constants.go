// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Fixed-window defaults and burst capacities.
  - Security: JWT issuers and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "credo-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Fixed-Window Rate Limiting (auth gate)

const (
	// RateLimitWindow is the length of one fixed counting window per client key.
	RateLimitWindow = 15 * time.Minute

	// RateLimitMaxRequests is the maximum number of gated requests per window.
	RateLimitMaxRequests = 100
)

// # Global Burst Limiting (transport middleware)

const (
	// DefaultBurstLimitRPS is the requests per second allowed per IP across all routes.
	DefaultBurstLimitRPS = 100.0

	// DefaultBurstLimitSize is the maximum burst allowed for the token-bucket limiter.
	DefaultBurstLimitSize = 150

	// BurstLimitCleanupInterval is how often old IP entries are removed from memory.
	BurstLimitCleanupInterval = 1 * time.Minute

	// BurstLimitClientTTL is how long a client must be idle before its entry is deleted.
	BurstLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "credo.app"

	// AccessTokenCookieName is the name of the cookie carrying the JWT access token.
	AccessTokenCookieName = "accessToken"

	// RefreshTokenCookieName is the name of the cookie carrying the JWT refresh token.
	RefreshTokenCookieName = "refreshToken"

	// ResetTokenCookieName holds the hashed reset-password token during a reset transaction.
	ResetTokenCookieName = "hashedResetPasswordToken"

	// ResetExpiryCookieName holds the reset transaction deadline (RFC3339).
	ResetExpiryCookieName = "resetPasswordExpiry"
)

// # HTTP Headers

const (
	HeaderXRequestID         = "X-Request-ID"
	HeaderXRealIP            = "X-Real-IP"
	HeaderXForwardedFor      = "X-Forwarded-For"
	HeaderOrigin             = "Origin"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixRateLimit = "auth:ratelimit:"
)
