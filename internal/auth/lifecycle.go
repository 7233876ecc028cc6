// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/sec"
	"github.com/mahirlabib/credo/pkg/normalize"
	"github.com/mahirlabib/credo/pkg/uuid"
)

// AccountLifecycle owns account creation, login-attempt accounting, and the
// soft/hard deletion machinery.
//
// # Ownership
//
// Lockout and deletion fields are mutated only here. Guards that depend on
// the current account state (locked, deleted) are the orchestrator's job and
// run before any mutation reaches this component.
type AccountLifecycle struct {
	accounts AccountRepository
	blobs    BlobStore
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewAccountLifecycle creates the lifecycle component.
func NewAccountLifecycle(accounts AccountRepository, blobs BlobStore, logger *slog.Logger) *AccountLifecycle {
	return &AccountLifecycle{
		accounts: accounts,
		blobs:    blobs,
		logger:   logger,
		now:      time.Now,
	}
}

/*
Register creates a new unverified local account.

Parameters:
  - ctx: Request context.
  - name: Display name (trimmed).
  - email: Address, normalized to its canonical lowercase form.
  - rawPassword: Plaintext password, hashed with argon2id before storage.

Returns:
  - *Account: The created account with IsEmailVerified == false.
  - error: apperr.Conflict when the email is taken, apperr.Internal on
    hashing or store failure.
*/
func (lifecycle *AccountLifecycle) Register(ctx context.Context, name, email, rawPassword string) (*Account, error) {
	passwordHash, err := sec.HashPassword(rawPassword)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("lifecycle_hash_failed: %w", err))
	}

	currentTime := lifecycle.now()
	account := &Account{
		ID:           uuid.New(),
		Email:        normalize.Email(email),
		Name:         normalize.Name(name),
		PasswordHash: passwordHash,
		Provider:     ProviderLocal,
		CreatedAt:    currentTime,
		UpdatedAt:    currentTime,
	}

	if err := lifecycle.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, apperr.Internal(fmt.Errorf("lifecycle_create_failed: %w", err))
	}

	return account, nil
}

/*
RecordLoginAttempt applies the lockout accounting for one credential check.

On a mismatch the failure counter is incremented atomically; when the
post-increment count reaches LoginMaxAttempts the lock deadline is set in
the same statement. On a match the counter is reset, the lock cleared, and
last_login_at stamped.

Returns:
  - error: apperr.Locked (with remaining minutes) when this attempt tripped
    the lock, apperr.Internal on store failure, nil otherwise. The caller
    still owes the client its generic credential failure on mismatch.
*/
func (lifecycle *AccountLifecycle) RecordLoginAttempt(ctx context.Context, account *Account, passwordMatched bool) error {
	if passwordMatched {
		if err := lifecycle.accounts.RecordSuccessfulLogin(ctx, account.ID); err != nil {
			return apperr.Internal(fmt.Errorf("lifecycle_login_reset_failed: %w", err))
		}
		return nil
	}

	lockDeadline := lifecycle.now().Add(LoginLockDuration)
	attempts, lockedUntil, err := lifecycle.accounts.RecordFailedLogin(ctx, account.ID, LoginMaxAttempts, lockDeadline)
	if err != nil {
		return apperr.Internal(fmt.Errorf("lifecycle_login_accounting_failed: %w", err))
	}

	if attempts >= LoginMaxAttempts && lockedUntil != nil {
		remaining := int((lockedUntil.Sub(lifecycle.now()) + time.Minute - 1) / time.Minute)
		return apperr.Locked(remaining)
	}

	return nil
}

// SoftDelete deactivates the account and opens its reactivation window.
func (lifecycle *AccountLifecycle) SoftDelete(ctx context.Context, account *Account) error {
	currentTime := lifecycle.now()
	err := lifecycle.accounts.SoftDelete(ctx, account.ID, currentTime, currentTime.Add(ReactivationWindow))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.BadRequest("Your account has already been deactivated!")
		}
		return apperr.Internal(fmt.Errorf("lifecycle_soft_delete_failed: %w", err))
	}
	return nil
}

// HardDelete purges the account's avatar blob and removes the row
// permanently. Irreversible.
//
// A blob-store failure is logged and does not block the account removal.
func (lifecycle *AccountLifecycle) HardDelete(ctx context.Context, account *Account) error {
	if account.AvatarKey != "" {
		if err := lifecycle.blobs.Delete(ctx, account.AvatarKey); err != nil {
			lifecycle.logger.WarnContext(ctx, "avatar_purge_failed",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := lifecycle.accounts.HardDelete(ctx, account.ID); err != nil {
		return apperr.Internal(fmt.Errorf("lifecycle_hard_delete_failed: %w", err))
	}
	return nil
}

/*
Reactivate clears the deletion flags on a soft-deleted account.

Returns:
  - error: apperr.BadRequest when the account is not deleted ("already
    active") or its reactivation window has not opened yet (remaining
    minutes included); apperr.Internal on store failure.
*/
func (lifecycle *AccountLifecycle) Reactivate(ctx context.Context, account *Account) error {
	currentTime := lifecycle.now()

	if !account.IsDeleted || account.DeletedAt == nil {
		return apperr.BadRequest("Your account is already active")
	}

	if account.ReactivateAvailableAt != nil && account.ReactivateAvailableAt.After(currentTime) {
		return apperr.BadRequest(fmt.Sprintf(
			"Your account has been locked. Please try again after %d minutes.",
			account.ReactivationRemainingMinutes(currentTime),
		))
	}

	if err := lifecycle.accounts.Reactivate(ctx, account.ID, currentTime); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// A concurrent reactivation already cleared the flags.
			return apperr.BadRequest("Your account is already active")
		}
		return apperr.Internal(fmt.Errorf("lifecycle_reactivate_failed: %w", err))
	}
	return nil
}
