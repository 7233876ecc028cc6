// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package auth implements the credential-and-session management core of Credo.

Architecture:

  - Account / OtpRecord: The domain entities and their state predicates.
  - OtpEngine: Passcode issue/verify with expiry, attempt limits, cooldowns.
  - AccountLifecycle: Registration, lockout accounting, soft/hard deletion.
  - Service: The request-level orchestrator tying the pieces together.
  - Handler: The HTTP delivery layer (chi routes, cookies, JSON envelope).

Entities are mutated only through their owning component: lockout and deletion
fields belong to AccountLifecycle, OTP fields to OtpEngine. All multi-field
mutations happen as single conditional SQL statements so concurrent requests
for the same account can never lose updates.
*/
package auth

import "time"

// # Federation

// Provider identifies how an account authenticates.
type Provider string

const (
	// ProviderLocal is an email/password account.
	ProviderLocal Provider = "local"

	// ProviderGoogle is a Google-federated account.
	ProviderGoogle Provider = "google"

	// ProviderGithub is a GitHub-federated account.
	ProviderGithub Provider = "github"
)

// # Account Entity

// Account represents a registered identity.
//
// # Invariants
//
// Email is globally unique, stored lowercased. A local account always has a
// password hash; a federated account's hash may be empty. A locked account
// (LockUntil in the future) rejects credential checks regardless of
// correctness. A deleted account rejects every authenticated operation
// except reactivation.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Bio   string `json:"bio,omitempty"`

	// PasswordHash is never serialized. Empty for OAuth-only accounts.
	PasswordHash string `json:"-"`

	AvatarURL string `json:"avatarUrl,omitempty"`
	// AvatarKey is the blob-store object key, used only when purging.
	AvatarKey string `json:"-"`

	Provider          Provider `json:"provider"`
	ProviderAccountID string   `json:"-"`

	IsEmailVerified bool `json:"isEmailVerified"`

	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`

	IsDeleted             bool       `json:"isDeleted"`
	DeletedAt             *time.Time `json:"-"`
	ReactivateAvailableAt *time.Time `json:"reactivateAvailableAt,omitempty"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsLocked reports whether the account's lockout is still in effect.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// LockRemainingMinutes returns the whole minutes until the lockout expires,
// rounded up so the reported wait is never an underestimate.
func (a *Account) LockRemainingMinutes(now time.Time) int {
	if a.LockUntil == nil {
		return 0
	}
	remaining := a.LockUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}

// ReactivationRemainingMinutes returns the whole minutes until a soft-deleted
// account becomes eligible for reactivation.
func (a *Account) ReactivationRemainingMinutes(now time.Time) int {
	if a.ReactivateAvailableAt == nil {
		return 0
	}
	remaining := a.ReactivateAvailableAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}

// # Sanitized Views

// RegisteredAccount is the payload returned after a successful registration
// or sign-in. It intentionally exposes only public identity fields.
type RegisteredAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the registration view of the account.
func (a *Account) Public() RegisteredAccount {
	return RegisteredAccount{ID: a.ID, Name: a.Name, Email: a.Email}
}

// # OTP Entity

// OtpType distinguishes the two passcode purposes.
type OtpType string

const (
	// OtpTypeEmailVerification proves control of an address after sign-up
	// or sign-in.
	OtpTypeEmailVerification OtpType = "email-verification"

	// OtpTypePasswordReset opens a password-reset transaction.
	OtpTypePasswordReset OtpType = "password-reset"
)

// Valid reports whether the value is a known OTP type.
func (t OtpType) Valid() bool {
	return t == OtpTypeEmailVerification || t == OtpTypePasswordReset
}

// OtpRecord is one live passcode challenge.
//
// At most one record exists per (email, type) pair; issuing a new code
// replaces the prior record wholesale. Only the code's digest is stored.
type OtpRecord struct {
	ID                  string
	Email               string
	Type                OtpType
	CodeHash            string
	Attempts            int
	IsVerified          bool
	ExpiresAt           time.Time
	NextResendAllowedAt time.Time
	CreatedAt           time.Time
}

// IsExpired reports whether the passcode is past its deadline.
func (r *OtpRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ResendThrottled reports whether a new issue for this key must still wait.
func (r *OtpRecord) ResendThrottled(now time.Time) bool {
	return r.NextResendAllowedAt.After(now)
}

// ResendRemainingSeconds returns the whole seconds until a resend is allowed,
// rounded up.
func (r *OtpRecord) ResendRemainingSeconds(now time.Time) int {
	remaining := r.NextResendAllowedAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}
