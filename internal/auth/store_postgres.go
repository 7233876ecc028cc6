// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// accountColumns is the canonical select list for account rows. Scan order
// must match [scanAccount].
const accountColumns = `
	id, email, name, bio, password_hash, avatar_url, avatar_key,
	provider, provider_account_id, is_email_verified,
	failed_login_attempts, lock_until,
	is_deleted, deleted_at, reactivate_available_at,
	last_login_at, created_at, updated_at`

// # Account Store

// PostgresAccountStore implements [AccountRepository] on pgx.
//
// Every mutation is a single conditional statement; none of the methods read
// a row before writing it.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountStore creates the account repository.
func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

func (store *PostgresAccountStore) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO auth.account (
			id, email, name, bio, password_hash, provider, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := store.pool.Exec(ctx, query,
		account.ID, account.Email, account.Name, account.Bio,
		account.PasswordHash, account.Provider, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("account_store_create_failed: %w", err)
	}
	return nil
}

func (store *PostgresAccountStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM auth.account WHERE email = $1`
	return store.getOne(ctx, query, email)
}

func (store *PostgresAccountStore) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM auth.account WHERE id = $1`
	return store.getOne(ctx, query, id)
}

// RecordFailedLogin bumps the failure counter and sets the lock deadline in
// the same statement when the post-increment count reaches maxAttempts.
// Increment and lock decision happen atomically in the database, so two
// concurrent failures at attempts == maxAttempts-1 produce exactly one lock.
func (store *PostgresAccountStore) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE auth.account
		SET failed_login_attempts = failed_login_attempts + 1,
		    lock_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE lock_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts, lock_until`

	var attempts int
	var lockedUntil *time.Time
	err := store.pool.QueryRow(ctx, query, id, maxAttempts, lockUntil).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrAccountNotFound
		}
		return 0, nil, fmt.Errorf("account_store_failed_login_failed: %w", err)
	}
	return attempts, lockedUntil, nil
}

func (store *PostgresAccountStore) RecordSuccessfulLogin(ctx context.Context, id string) error {
	query := `
		UPDATE auth.account
		SET failed_login_attempts = 0,
		    lock_until = NULL,
		    last_login_at = now(),
		    updated_at = now()
		WHERE id = $1`
	return store.execExpectingRow(ctx, query, "account_store_login_reset_failed", id)
}

func (store *PostgresAccountStore) MarkEmailVerified(ctx context.Context, id string) error {
	query := `
		UPDATE auth.account
		SET is_email_verified = TRUE,
		    failed_login_attempts = 0,
		    lock_until = NULL,
		    last_login_at = now(),
		    updated_at = now()
		WHERE id = $1`
	return store.execExpectingRow(ctx, query, "account_store_mark_verified_failed", id)
}

func (store *PostgresAccountStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE auth.account
		SET password_hash = $2, updated_at = now()
		WHERE id = $1`
	return store.execExpectingRow(ctx, query, "account_store_password_update_failed", id, passwordHash)
}

// UpdateProfile applies a partial update: nil patch fields map to NULL
// parameters, which COALESCE resolves back to the current column value.
func (store *PostgresAccountStore) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*Account, error) {
	query := `
		UPDATE auth.account
		SET name = COALESCE($2, name),
		    bio = COALESCE($3, bio),
		    avatar_url = COALESCE($4, avatar_url),
		    avatar_key = COALESCE($5, avatar_key),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(store.pool.QueryRow(ctx, query, id, patch.Name, patch.Bio, patch.AvatarURL, patch.AvatarKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account_store_profile_update_failed: %w", err)
	}
	return account, nil
}

func (store *PostgresAccountStore) SoftDelete(ctx context.Context, id string, deletedAt, reactivateAvailableAt time.Time) error {
	query := `
		UPDATE auth.account
		SET is_deleted = TRUE,
		    deleted_at = $2,
		    reactivate_available_at = $3,
		    updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE`
	return store.execExpectingRow(ctx, query, "account_store_soft_delete_failed", id, deletedAt, reactivateAvailableAt)
}

// Reactivate clears the deletion flags. The window check is part of the
// statement's predicate, so the guard and the mutation cannot be interleaved
// by a concurrent request.
func (store *PostgresAccountStore) Reactivate(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE auth.account
		SET is_deleted = FALSE,
		    deleted_at = NULL,
		    reactivate_available_at = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND is_deleted = TRUE
		  AND (reactivate_available_at IS NULL OR reactivate_available_at <= $2)`
	return store.execExpectingRow(ctx, query, "account_store_reactivate_failed", id, now)
}

func (store *PostgresAccountStore) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM auth.account WHERE id = $1`
	return store.execExpectingRow(ctx, query, "account_store_hard_delete_failed", id)
}

func (store *PostgresAccountStore) getOne(ctx context.Context, query string, arg any) (*Account, error) {
	account, err := scanAccount(store.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account_store_lookup_failed: %w", err)
	}
	return account, nil
}

// execExpectingRow runs a mutation that must touch exactly one row; zero
// affected rows map to [ErrAccountNotFound].
func (store *PostgresAccountStore) execExpectingRow(ctx context.Context, query, wrapPrefix string, args ...any) error {
	tag, err := store.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", wrapPrefix, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID, &account.Email, &account.Name, &account.Bio,
		&account.PasswordHash, &account.AvatarURL, &account.AvatarKey,
		&account.Provider, &account.ProviderAccountID, &account.IsEmailVerified,
		&account.FailedLoginAttempts, &account.LockUntil,
		&account.IsDeleted, &account.DeletedAt, &account.ReactivateAvailableAt,
		&account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// # OTP Store

// PostgresOtpStore implements [OtpRepository] on pgx.
type PostgresOtpStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOtpStore creates the OTP repository.
func NewPostgresOtpStore(pool *pgxpool.Pool) *PostgresOtpStore {
	return &PostgresOtpStore{pool: pool}
}

// Upsert replaces any prior record for the (email, otp_type) key wholesale.
// The UNIQUE(email, otp_type) constraint enforces the single-live-record
// model at the schema level.
func (store *PostgresOtpStore) Upsert(ctx context.Context, record *OtpRecord) error {
	query := `
		INSERT INTO auth.otp (
			id, email, otp_type, code_hash, attempts, is_verified,
			expires_at, next_resend_allowed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email, otp_type) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			attempts = EXCLUDED.attempts,
			is_verified = EXCLUDED.is_verified,
			expires_at = EXCLUDED.expires_at,
			next_resend_allowed_at = EXCLUDED.next_resend_allowed_at,
			created_at = EXCLUDED.created_at`

	_, err := store.pool.Exec(ctx, query,
		record.ID, record.Email, record.Type, record.CodeHash,
		record.Attempts, record.IsVerified,
		record.ExpiresAt, record.NextResendAllowedAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("otp_store_upsert_failed: %w", err)
	}
	return nil
}

func (store *PostgresOtpStore) Get(ctx context.Context, email string, otpType OtpType) (*OtpRecord, error) {
	query := `
		SELECT id, email, otp_type, code_hash, attempts, is_verified,
		       expires_at, next_resend_allowed_at, created_at
		FROM auth.otp
		WHERE email = $1 AND otp_type = $2`

	record := &OtpRecord{}
	err := store.pool.QueryRow(ctx, query, email, otpType).Scan(
		&record.ID, &record.Email, &record.Type, &record.CodeHash,
		&record.Attempts, &record.IsVerified,
		&record.ExpiresAt, &record.NextResendAllowedAt, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOtpNotFound
		}
		return nil, fmt.Errorf("otp_store_lookup_failed: %w", err)
	}
	return record, nil
}

// IncrementAttempts is the atomic half of increment-then-check: the returned
// count is this statement's own result, never a stale read.
func (store *PostgresOtpStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE auth.otp
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`

	var attempts int
	if err := store.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrOtpNotFound
		}
		return 0, fmt.Errorf("otp_store_increment_failed: %w", err)
	}
	return attempts, nil
}

// MarkVerified is conditional on the record still being consumable; of two
// concurrent correct attempts only one observes RowsAffected == 1.
func (store *PostgresOtpStore) MarkVerified(ctx context.Context, id string, maxAttempts int) (bool, error) {
	query := `
		UPDATE auth.otp
		SET is_verified = TRUE
		WHERE id = $1 AND is_verified = FALSE AND attempts < $2`

	tag, err := store.pool.Exec(ctx, query, id, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("otp_store_mark_verified_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (store *PostgresOtpStore) Delete(ctx context.Context, id string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM auth.otp WHERE id = $1`, id); err != nil {
		return fmt.Errorf("otp_store_delete_failed: %w", err)
	}
	return nil
}

func (store *PostgresOtpStore) PurgeStale(ctx context.Context, maxAttempts int) (int64, error) {
	query := `
		DELETE FROM auth.otp
		WHERE expires_at < now() OR attempts >= $1 OR is_verified = TRUE`

	tag, err := store.pool.Exec(ctx, query, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("otp_store_purge_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
