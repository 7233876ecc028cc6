// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two credentials minted by the [TokenService].
type TokenKind string

const (
	// TokenKindAccess is the short-lived credential attached to API calls.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh is the long-lived credential used only to rotate pairs.
	TokenKindRefresh TokenKind = "refresh"
)

// Sentinel verification failures.
//
// # Security
//
// Callers must not forward these verbatim to clients; they exist so the
// orchestrator can branch (e.g. transparent refresh on expiry).
var (
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid indicates a signature, structure, or kind failure.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a Credo JWT.
//
// # Why so small?
//
// Tokens carry only the subject id and their kind. All account state
// (verified, locked, deleted) is re-checked against storage on each
// authenticated operation, so stale claims can never bypass a guard.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Kind tags the token as "access" or "refresh" so one can never be
	// presented in place of the other, even though both are HS256 JWTs.
	Kind TokenKind `json:"knd"`
}

// TokenService mints and verifies the access/refresh token pair using HS256.
//
// # Statelessness
//
// The service holds nothing but signing secrets; tokens are self-contained
// and never persisted. There is no server-side revocation list: a leaked
// refresh token stays valid until its natural expiry.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenService creates a TokenService with split access/refresh secrets.
//
// accessTTL must be shorter than refreshTTL; the constructor enforces the
// invariant so misconfiguration fails at boot rather than in production.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if accessTTL >= refreshTTL {
		return nil, fmt.Errorf("sec: access TTL (%s) must be shorter than refresh TTL (%s)", accessTTL, refreshTTL)
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
	}, nil
}

// IssueAccessToken creates a signed short-lived access token for the subject.
func (service *TokenService) IssueAccessToken(subjectID string) (string, error) {
	return service.issue(subjectID, TokenKindAccess, service.accessSecret, service.accessTTL)
}

// IssueRefreshToken creates a signed long-lived refresh token for the subject.
func (service *TokenService) IssueRefreshToken(subjectID string) (string, error) {
	return service.issue(subjectID, TokenKindRefresh, service.refreshSecret, service.refreshTTL)
}

// IssuePair mints a fresh access+refresh pair for the subject.
//
// Used on email verification and on every refresh rotation: a refresh is
// never reused, both halves of the pair are always replaced together.
func (service *TokenService) IssuePair(subjectID string) (accessToken, refreshToken string, err error) {
	accessToken, err = service.IssueAccessToken(subjectID)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = service.IssueRefreshToken(subjectID)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

func (service *TokenService) issue(subjectID string, kind TokenKind, secret []byte, ttl time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return signedToken, nil
}

// Verify checks the signature, expiry, and kind of a token string and
// returns the subject id it was issued for.
//
// # Returns
//   - string: the subject id embedded in the token.
//   - error: [ErrTokenExpired] past expiry, [ErrTokenInvalid] on any
//     signature/structure/kind failure.
func (service *TokenService) Verify(tokenString string, kind TokenKind) (string, error) {
	secret := service.accessSecret
	if kind == TokenKindRefresh {
		secret = service.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(service.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
