// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahirlabib/credo/internal/platform/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOtpEngine(otps *fakeOtps, notifier *fakeNotifier, at time.Time) *OtpEngine {
	engine := NewOtpEngine(otps, notifier, discardLogger())
	engine.now = func() time.Time { return at }
	return engine
}

func TestOtpEngineIssue(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("dispatches a code and persists only its digest", func(t *testing.T) {
		otps := newFakeOtps()
		notifier := &fakeNotifier{}
		engine := newTestOtpEngine(otps, notifier, issuedAt)

		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))

		code := notifier.lastCode(t)
		record, err := otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		require.NoError(t, err)
		assert.NotEqual(t, code, record.CodeHash)
		assert.Equal(t, issuedAt.Add(OtpTTL), record.ExpiresAt)
		assert.Equal(t, issuedAt.Add(OtpResendCooldown), record.NextResendAllowedAt)
	})

	t.Run("throttles a resend inside the cooldown", func(t *testing.T) {
		otps := newFakeOtps()
		notifier := &fakeNotifier{}
		engine := newTestOtpEngine(otps, notifier, issuedAt)

		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))

		err := engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification)
		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, "THROTTLED", appError.Code)
		assert.Equal(t, int(OtpResendCooldown.Seconds()), appError.RetryAfterSeconds)
	})

	t.Run("allows a resend after the cooldown and replaces the record", func(t *testing.T) {
		otps := newFakeOtps()
		notifier := &fakeNotifier{}
		engine := newTestOtpEngine(otps, notifier, issuedAt)

		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))
		first, err := otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		require.NoError(t, err)

		engine.now = func() time.Time { return issuedAt.Add(OtpResendCooldown + time.Second) }
		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))

		second, err := otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("purposes are throttled independently", func(t *testing.T) {
		otps := newFakeOtps()
		notifier := &fakeNotifier{}
		engine := newTestOtpEngine(otps, notifier, issuedAt)

		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))
		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypePasswordReset))
	})

	t.Run("removes the record when dispatch fails", func(t *testing.T) {
		otps := newFakeOtps()
		notifier := &fakeNotifier{fail: true}
		engine := newTestOtpEngine(otps, notifier, issuedAt)

		err := engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification)
		require.Error(t, err)

		_, err = otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		assert.ErrorIs(t, err, ErrOtpNotFound)
	})
}

func TestOtpEngineVerify(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*OtpEngine, *fakeOtps, string) {
		t.Helper()
		otps := newFakeOtps()
		notifier := &fakeNotifier{}
		engine := newTestOtpEngine(otps, notifier, issuedAt)
		require.NoError(t, engine.Issue(ctx, "alice@x.com", OtpTypeEmailVerification))
		return engine, otps, notifier.lastCode(t)
	}

	t.Run("succeeds exactly once with the correct code", func(t *testing.T) {
		engine, _, code := setup(t)

		verifiedType, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		require.NoError(t, err)
		assert.Equal(t, OtpTypeEmailVerification, verifiedType)
	})

	t.Run("a second verify with the same code is rejected", func(t *testing.T) {
		engine, otps, code := setup(t)

		_, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		require.NoError(t, err)

		// The success purges verified records globally; re-add a verified
		// record to exercise the replay guard on a surviving row.
		record := &OtpRecord{
			ID: "replay", Email: "alice@x.com", Type: OtpTypeEmailVerification,
			CodeHash: "stale", IsVerified: true,
			ExpiresAt:           issuedAt.Add(OtpTTL),
			NextResendAllowedAt: issuedAt,
		}
		require.NoError(t, otps.Upsert(ctx, record))

		_, err = engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		assert.ErrorContains(t, err, "already been verified")
	})

	t.Run("unknown key fails", func(t *testing.T) {
		engine, _, _ := setup(t)

		_, err := engine.Verify(ctx, "bob@x.com", OtpTypeEmailVerification, "123456")
		assert.ErrorContains(t, err, "Invalid or expired OTP")
	})

	t.Run("wrong code increments attempts", func(t *testing.T) {
		engine, otps, code := setup(t)

		wrongCode := "000000"
		if wrongCode == code {
			wrongCode = "000001"
		}

		_, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, wrongCode)
		assert.ErrorContains(t, err, "Invalid or expired OTP")

		record, err := otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		require.NoError(t, err)
		assert.Equal(t, 1, record.Attempts)
	})

	t.Run("exhausting attempts purges the record and blocks the correct code", func(t *testing.T) {
		engine, otps, code := setup(t)

		wrongCode := "000000"
		if wrongCode == code {
			wrongCode = "000001"
		}

		for i := 0; i < OtpMaxAttempts; i++ {
			_, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, wrongCode)
			require.Error(t, err)
		}

		// The record was purged on the attempt that hit the maximum, so
		// even the correct code can never validate again.
		_, err := otps.Get(ctx, "alice@x.com", OtpTypeEmailVerification)
		assert.ErrorIs(t, err, ErrOtpNotFound)

		_, err = engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		assert.ErrorContains(t, err, "Invalid or expired OTP")
	})

	t.Run("the attempt reaching the maximum reports exhaustion", func(t *testing.T) {
		engine, _, code := setup(t)

		wrongCode := "000000"
		if wrongCode == code {
			wrongCode = "000001"
		}

		var lastErr error
		for i := 0; i < OtpMaxAttempts; i++ {
			_, lastErr = engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, wrongCode)
		}
		assert.ErrorContains(t, lastErr, "Maximum number of attempts")
	})

	t.Run("expired code fails", func(t *testing.T) {
		engine, _, code := setup(t)
		engine.now = func() time.Time { return issuedAt.Add(OtpTTL + time.Second) }

		_, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		assert.ErrorContains(t, err, "expired")
	})

	t.Run("success purges stale records of other keys", func(t *testing.T) {
		engine, otps, code := setup(t)

		stale := &OtpRecord{
			ID: "stale", Email: "bob@x.com", Type: OtpTypePasswordReset,
			CodeHash:            "whatever",
			ExpiresAt:           issuedAt.Add(-time.Minute),
			NextResendAllowedAt: issuedAt,
		}
		require.NoError(t, otps.Upsert(ctx, stale))

		_, err := engine.Verify(ctx, "alice@x.com", OtpTypeEmailVerification, code)
		require.NoError(t, err)

		_, err = otps.Get(ctx, "bob@x.com", OtpTypePasswordReset)
		assert.ErrorIs(t, err, ErrOtpNotFound)
	})
}
