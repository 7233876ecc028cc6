// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import "time"

// # One-Time Passcodes

const (
	// OtpCodeLength is the number of digits in a generated passcode.
	OtpCodeLength = 6

	// OtpTTL is how long a passcode stays valid after issue.
	OtpTTL = 5 * time.Minute

	// OtpResendCooldown is the minimum delay between two issues for the
	// same (email, type) pair.
	OtpResendCooldown = 60 * time.Second

	// OtpMaxAttempts is the number of verification attempts before the
	// record is purged.
	OtpMaxAttempts = 5
)

// # Login Lockout

const (
	// LoginMaxAttempts is the number of consecutive failed sign-ins that
	// triggers a lockout.
	LoginMaxAttempts = 5

	// LoginLockDuration is how long an account stays locked.
	LoginLockDuration = 15 * time.Minute
)

// # Account Lifecycle

const (
	// ReactivationWindow is how long a soft-deleted account must wait
	// before it becomes eligible for reactivation.
	ReactivationWindow = 7 * 24 * time.Hour
)

// # Password Reset

const (
	// ResetSessionTTL bounds the window between a verified password-reset
	// OTP and the actual password change.
	ResetSessionTTL = 10 * time.Minute
)

// # Input Limits

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
	NameMaxLength     = 50
	BioMaxLength      = 300

	// AvatarMaxBytes caps avatar uploads at 2 MiB.
	AvatarMaxBytes = 2 << 20
)
