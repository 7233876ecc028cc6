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
	"github.com/mahirlabib/credo/pkg/uuid"
)

// OtpEngine owns the full passcode lifecycle: generation, hashing, persistence,
// verification, and purge of stale challenges.
//
// # Ownership
//
// OtpEngine is the only component that mutates [OtpRecord] rows.
type OtpEngine struct {
	otps     OtpRepository
	notifier Notifier
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewOtpEngine creates the passcode engine.
func NewOtpEngine(otps OtpRepository, notifier Notifier, logger *slog.Logger) *OtpEngine {
	return &OtpEngine{
		otps:     otps,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

/*
Issue generates and dispatches a new passcode for the (email, type) key.

Flow:
 1. Resend throttle: an existing record with a future nextResendAllowedAt
    fails with a 429 carrying the remaining seconds.
 2. Generate a fixed-length numeric code and compute its digest.
 3. Upsert the record, replacing any prior challenge for the key.
 4. Dispatch the raw code via the notifier. On dispatch failure the record
    is removed again so the cooldown does not strand the caller.

Parameters:
  - ctx: Request context.
  - email: Normalized recipient address.
  - otpType: Passcode purpose (email-verification | password-reset).

Returns:
  - error: apperr.Throttled on cooldown, apperr.Internal on store or
    notifier failure, nil on success. The raw code never appears in the
    return value or the logs.
*/
func (engine *OtpEngine) Issue(ctx context.Context, email string, otpType OtpType) error {
	currentTime := engine.now()

	// ── 1. Resend Cooldown ────────────────────────────────────────────────
	existing, err := engine.otps.Get(ctx, email, otpType)
	if err != nil && !errors.Is(err, ErrOtpNotFound) {
		return apperr.Internal(fmt.Errorf("otp_engine_lookup_failed: %w", err))
	}
	if existing != nil && existing.ResendThrottled(currentTime) {
		return apperr.Throttled(existing.ResendRemainingSeconds(currentTime))
	}

	// ── 2. Code Generation ────────────────────────────────────────────────
	code, err := sec.GenerateOtpCode(OtpCodeLength)
	if err != nil {
		return apperr.Internal(fmt.Errorf("otp_engine_generate_failed: %w", err))
	}

	record := &OtpRecord{
		ID:                  uuid.New(),
		Email:               email,
		Type:                otpType,
		CodeHash:            sec.HashOtpCode(code),
		Attempts:            0,
		IsVerified:          false,
		ExpiresAt:           currentTime.Add(OtpTTL),
		NextResendAllowedAt: currentTime.Add(OtpResendCooldown),
		CreatedAt:           currentTime,
	}

	// ── 3. Persistence (replace prior record) ─────────────────────────────
	if err := engine.otps.Upsert(ctx, record); err != nil {
		return apperr.Internal(fmt.Errorf("otp_engine_persist_failed: %w", err))
	}

	// ── 4. Dispatch ───────────────────────────────────────────────────────
	subject, body := otpMessage(otpType, code)
	if err := engine.notifier.Send(ctx, email, subject, body); err != nil {
		if deleteErr := engine.otps.Delete(ctx, record.ID); deleteErr != nil {
			engine.logger.WarnContext(ctx, "otp_orphan_cleanup_failed",
				slog.String("error", deleteErr.Error()),
			)
		}
		return apperr.Internal(fmt.Errorf("otp_engine_dispatch_failed: %w", err))
	}

	return nil
}

/*
Verify checks a candidate code against the live record for the key.

Flow:
 1. NotFound when no record exists for the (email, type) key.
 2. AttemptsExceeded when the stored counter already reached the maximum;
    the record is purged so it can never validate again.
 3. AlreadyVerified when the record was consumed by a prior success.
 4. Expired when the code's deadline has passed.
 5. Constant-time digest comparison. A mismatch increments the attempt
    counter atomically (increment-then-check): when the post-increment
    count reaches the maximum the record is purged and the failure is
    reported as AttemptsExceeded, closing the race where two concurrent
    attempts both observe attempts == max-1.
 6. A match marks the record verified through a conditional update, so two
    concurrent correct attempts cannot both succeed. Stale records across
    all keys are then purged opportunistically.

Returns:
  - OtpType: The verified record's purpose, so the orchestrator can branch
    between session issuance and the password-reset transaction.
  - error: An [apperr.AppError] for every failure mode above.
*/
func (engine *OtpEngine) Verify(ctx context.Context, email string, otpType OtpType, candidateCode string) (OtpType, error) {
	currentTime := engine.now()

	// ── 1. Lookup ─────────────────────────────────────────────────────────
	record, err := engine.otps.Get(ctx, email, otpType)
	if err != nil {
		if errors.Is(err, ErrOtpNotFound) {
			return "", apperr.BadRequest("Invalid or expired OTP code.")
		}
		return "", apperr.Internal(fmt.Errorf("otp_engine_lookup_failed: %w", err))
	}

	// ── 2. Attempt Budget ─────────────────────────────────────────────────
	if record.Attempts >= OtpMaxAttempts {
		engine.purgeRecord(ctx, record.ID)
		return "", apperr.BadRequest("Maximum number of attempts reached. Please try again later.")
	}

	// ── 3. Replay Guard ───────────────────────────────────────────────────
	if record.IsVerified {
		return "", apperr.BadRequest("OTP code has already been verified.")
	}

	// ── 4. Expiry ─────────────────────────────────────────────────────────
	if record.IsExpired(currentTime) {
		return "", apperr.BadRequest("OTP code has expired.")
	}

	// ── 5. Digest Comparison ──────────────────────────────────────────────
	if !sec.CompareOtpHash(candidateCode, record.CodeHash) {
		attempts, incrementErr := engine.otps.IncrementAttempts(ctx, record.ID)
		if incrementErr != nil {
			return "", apperr.Internal(fmt.Errorf("otp_engine_increment_failed: %w", incrementErr))
		}
		if attempts >= OtpMaxAttempts {
			engine.purgeRecord(ctx, record.ID)
			return "", apperr.BadRequest("Maximum number of attempts reached. Please try again later.")
		}
		return "", apperr.BadRequest("Invalid or expired OTP code.")
	}

	// ── 6. Consume ────────────────────────────────────────────────────────
	marked, err := engine.otps.MarkVerified(ctx, record.ID, OtpMaxAttempts)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("otp_engine_mark_verified_failed: %w", err))
	}
	if !marked {
		// A concurrent verify consumed the record first.
		return "", apperr.BadRequest("OTP code has already been verified.")
	}

	if purged, purgeErr := engine.otps.PurgeStale(ctx, OtpMaxAttempts); purgeErr != nil {
		engine.logger.WarnContext(ctx, "otp_purge_failed", slog.String("error", purgeErr.Error()))
	} else if purged > 0 {
		engine.logger.DebugContext(ctx, "otp_stale_purged", slog.Int64("count", purged))
	}

	return record.Type, nil
}

// purgeRecord deletes a single exhausted record, logging rather than failing
// the request when the delete itself errors.
func (engine *OtpEngine) purgeRecord(ctx context.Context, id string) {
	if err := engine.otps.Delete(ctx, id); err != nil {
		engine.logger.WarnContext(ctx, "otp_purge_failed", slog.String("error", err.Error()))
	}
}

// otpMessage builds the outbound subject and body for a passcode dispatch.
func otpMessage(otpType OtpType, code string) (subject, body string) {
	switch otpType {
	case OtpTypePasswordReset:
		subject = "OTP for password reset"
	default:
		subject = "OTP for email verification"
	}
	body = fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(OtpTTL.Minutes()))
	return subject, body
}
