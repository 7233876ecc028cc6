// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"io"
	"time"
)

// # Storage Errors

var (
	// ErrAccountNotFound indicates no account matches the lookup key.
	ErrAccountNotFound = errors.New("auth: account not found")

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("auth: email already registered")

	// ErrOtpNotFound indicates no live OTP record for the (email, type) key.
	ErrOtpNotFound = errors.New("auth: otp record not found")
)

// # Repository Contracts

// ProfilePatch carries the mutable profile fields for an update. Nil fields
// are left untouched.
type ProfilePatch struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	AvatarKey *string
}

// AccountRepository is the persistence boundary for [Account] rows.
//
// # Concurrency
//
// Every mutating method must execute as a single conditional SQL statement.
// Lockout accounting in particular must not be a read followed by a write:
// two concurrent failed sign-ins at attempts == max-1 must still produce
// exactly one lock.
type AccountRepository interface {
	// Create inserts a new account. Returns [ErrDuplicateEmail] when the
	// email (case-insensitive) is taken.
	Create(ctx context.Context, account *Account) error

	// GetByEmail fetches an account by its lowercased email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID fetches an account by its id.
	GetByID(ctx context.Context, id string) (*Account, error)

	// RecordFailedLogin atomically increments the failure counter and, when
	// the post-increment count reaches maxAttempts, sets the lock deadline.
	// Returns the post-increment count and the lock deadline if one is set.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (attempts int, lockedUntil *time.Time, err error)

	// RecordSuccessfulLogin resets the failure counter, clears any lock,
	// and stamps last_login_at.
	RecordSuccessfulLogin(ctx context.Context, id string) error

	// MarkEmailVerified sets is_email_verified, resets lockout state, and
	// stamps last_login_at.
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateProfile applies a partial profile update and returns the
	// refreshed account.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*Account, error)

	// SoftDelete marks the account deleted with its reactivation deadline.
	// The update is conditional on the account not already being deleted.
	SoftDelete(ctx context.Context, id string, deletedAt, reactivateAvailableAt time.Time) error

	// Reactivate clears the deletion flags. The update is conditional on
	// the account being deleted with its reactivation window open as of now.
	Reactivate(ctx context.Context, id string, now time.Time) error

	// HardDelete removes the account row permanently.
	HardDelete(ctx context.Context, id string) error
}

// OtpRepository is the persistence boundary for [OtpRecord] rows.
type OtpRepository interface {
	// Upsert inserts the record, replacing any prior record for the same
	// (email, type) key.
	Upsert(ctx context.Context, record *OtpRecord) error

	// Get fetches the live record for the (email, type) key.
	Get(ctx context.Context, email string, otpType OtpType) (*OtpRecord, error)

	// IncrementAttempts atomically bumps the attempt counter and returns
	// the post-increment value.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// MarkVerified flips is_verified, conditional on the record still being
	// unverified with attempts below maxAttempts. Reports whether the row
	// was updated; false means a concurrent verify or exhaustion won.
	MarkVerified(ctx context.Context, id string, maxAttempts int) (bool, error)

	// Delete removes one record by id.
	Delete(ctx context.Context, id string) error

	// PurgeStale removes every expired, exhausted, or verified record and
	// returns the number of rows deleted.
	PurgeStale(ctx context.Context, maxAttempts int) (int64, error)
}

// # External Collaborators

// Notifier dispatches outbound messages carrying raw OTP codes. The raw code
// exists nowhere else.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// BlobStore holds user-uploaded avatars.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}
