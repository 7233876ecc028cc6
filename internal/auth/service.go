// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/sec"
	"github.com/mahirlabib/credo/pkg/normalize"
)

// # Results

// TokenPair is the session credential pair returned on verification and
// refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// VerifyOtpResult is the orchestrator's branch point after a successful
// passcode verification.
//
// Email-verification populates Tokens; password-reset populates the
// reset-transaction fields instead.
type VerifyOtpResult struct {
	Type        OtpType
	Tokens      *TokenPair
	ResetToken  string
	ResetExpiry time.Time
}

// ResetSession carries the reset-transaction state the client presents,
// as read from its cookies by the transport layer.
type ResetSession struct {
	HashedToken string
	Expiry      string
}

// AvatarUpload is an incoming avatar file.
type AvatarUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	Name   string
	Bio    string
	Avatar *AvatarUpload
}

// # Orchestrator

// Service is the authentication state machine. It decides what step a caller
// is in (registered-but-unverified, verified, locked, deleted, reset-pending)
// and what is permitted next, delegating the actual work to [OtpEngine],
// [AccountLifecycle], and [sec.TokenService].
//
// # Guards
//
// Locked and deleted accounts are rejected here, before any mutation reaches
// a downstream component. Credential failures for unknown emails and wrong
// passwords collapse to the same generic message to prevent enumeration.
type Service struct {
	accounts  AccountRepository
	lifecycle *AccountLifecycle
	otp       *OtpEngine
	tokens    *sec.TokenService
	blobs     BlobStore

	// resetSecret keys the HMAC behind the reset-password transaction.
	resetSecret string

	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the authentication orchestrator.
func NewService(
	accounts AccountRepository,
	lifecycle *AccountLifecycle,
	otp *OtpEngine,
	tokens *sec.TokenService,
	blobs BlobStore,
	resetSecret string,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:    accounts,
		lifecycle:   lifecycle,
		otp:         otp,
		tokens:      tokens,
		blobs:       blobs,
		resetSecret: resetSecret,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a new unverified local account.
func (service *Service) Register(ctx context.Context, name, email, password string) (RegisteredAccount, error) {
	account, err := service.lifecycle.Register(ctx, name, email, password)
	if err != nil {
		return RegisteredAccount{}, err
	}

	service.logger.InfoContext(ctx, "account_registered", slog.String("account_id", account.ID))
	return account.Public(), nil
}

/*
SignIn checks credentials and, on success, dispatches a verification
passcode. No session is issued here: tokens are only minted once the
passcode is verified.

Flow:
 1. Lookup by normalized email. Unknown emails fail with the same generic
    message as wrong passwords.
 2. Deleted and locked guards run before the credential check, so a locked
    account rejects even a correct password.
 3. The lockout accounting is applied for every credential check. The
    attempt that trips the lock surfaces the lock message instead of the
    generic one.
 4. A matched password dispatches an email-verification OTP.
*/
func (service *Service) SignIn(ctx context.Context, email, password string) (RegisteredAccount, error) {
	currentTime := service.now()

	account, err := service.getByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return RegisteredAccount{}, apperr.Unauthorized("Invalid email or password")
		}
		return RegisteredAccount{}, err
	}

	if account.IsDeleted {
		return RegisteredAccount{}, apperr.Deactivated()
	}
	if account.IsLocked(currentTime) {
		return RegisteredAccount{}, apperr.Locked(account.LockRemainingMinutes(currentTime))
	}

	passwordMatched := sec.CheckPasswordHash(password, account.PasswordHash)

	if err := service.lifecycle.RecordLoginAttempt(ctx, account, passwordMatched); err != nil {
		return RegisteredAccount{}, err
	}
	if !passwordMatched {
		return RegisteredAccount{}, apperr.Unauthorized("Invalid email or password")
	}

	if err := service.otp.Issue(ctx, account.Email, OtpTypeEmailVerification); err != nil {
		return RegisteredAccount{}, err
	}

	return account.Public(), nil
}

// RequestOtp dispatches a fresh passcode of the requested type, subject to
// the account-state guards and the resend cooldown.
func (service *Service) RequestOtp(ctx context.Context, email string, otpType OtpType) error {
	currentTime := service.now()

	account, err := service.getByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.BadRequest("User with this email does not exist")
		}
		return err
	}

	if account.IsDeleted {
		return apperr.Deactivated()
	}
	if account.IsLocked(currentTime) {
		return apperr.Locked(account.LockRemainingMinutes(currentTime))
	}

	return service.otp.Issue(ctx, account.Email, otpType)
}

/*
VerifyOtp validates a passcode and branches on its purpose.

An email-verification success marks the email verified, resets the lockout
counters, stamps the login time, and mints a token pair. A password-reset
success requires an already-verified email and opens the reset transaction
by deriving the ephemeral reset token and its deadline; the transport layer
materializes those as cookies.
*/
func (service *Service) VerifyOtp(ctx context.Context, email, code string, otpType OtpType) (VerifyOtpResult, error) {
	currentTime := service.now()

	account, err := service.getByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return VerifyOtpResult{}, apperr.BadRequest("User with this email does not exist")
		}
		return VerifyOtpResult{}, err
	}

	if account.IsDeleted {
		return VerifyOtpResult{}, apperr.Deactivated()
	}
	if account.IsLocked(currentTime) {
		return VerifyOtpResult{}, apperr.Locked(account.LockRemainingMinutes(currentTime))
	}

	verifiedType, err := service.otp.Verify(ctx, account.Email, otpType, code)
	if err != nil {
		return VerifyOtpResult{}, err
	}

	switch verifiedType {
	case OtpTypeEmailVerification:
		if err := service.accounts.MarkEmailVerified(ctx, account.ID); err != nil {
			return VerifyOtpResult{}, apperr.Internal(fmt.Errorf("service_mark_verified_failed: %w", err))
		}

		accessToken, refreshToken, err := service.tokens.IssuePair(account.ID)
		if err != nil {
			return VerifyOtpResult{}, apperr.Internal(fmt.Errorf("service_token_issue_failed: %w", err))
		}

		service.logger.InfoContext(ctx, "email_verified", slog.String("account_id", account.ID))
		return VerifyOtpResult{
			Type:   verifiedType,
			Tokens: &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
		}, nil

	case OtpTypePasswordReset:
		if !account.IsEmailVerified {
			return VerifyOtpResult{}, apperr.Forbidden("Email is not verified yet.")
		}

		return VerifyOtpResult{
			Type:        verifiedType,
			ResetToken:  sec.ResetToken(account.ID, service.resetSecret),
			ResetExpiry: currentTime.Add(ResetSessionTTL),
		}, nil
	}

	return VerifyOtpResult{}, apperr.Internal(fmt.Errorf("service_unknown_otp_type: %q", verifiedType))
}

/*
ResetPassword completes the reset transaction opened by a verified
password-reset passcode.

The presented cookie token is recomputed from the account id and compared in
constant time; nothing about the transaction is stored server-side. The new
password must differ from the current one.
*/
func (service *Service) ResetPassword(ctx context.Context, email, newPassword string, session ResetSession) error {
	currentTime := service.now()

	// ── 1. Transaction Expiry ─────────────────────────────────────────────
	if session.HashedToken == "" || session.Expiry == "" {
		return apperr.BadRequest("Reset password token has expired")
	}
	expiry, err := time.Parse(time.RFC3339, session.Expiry)
	if err != nil || expiry.Before(currentTime) {
		return apperr.BadRequest("Reset password token has expired")
	}

	// ── 2. Account ────────────────────────────────────────────────────────
	account, err := service.getByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.NotFound("User")
		}
		return err
	}

	// ── 3. Token Comparison ───────────────────────────────────────────────
	if !sec.CompareResetToken(session.HashedToken, account.ID, service.resetSecret) {
		return apperr.BadRequest("Invalid reset password token")
	}

	// ── 4. Same-Password Rejection ────────────────────────────────────────
	if sec.CheckPasswordHash(newPassword, account.PasswordHash) {
		return apperr.BadRequest("New password cannot be same as old password")
	}

	// ── 5. Update ─────────────────────────────────────────────────────────
	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("service_hash_failed: %w", err))
	}
	if err := service.accounts.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
		return apperr.Internal(fmt.Errorf("service_password_update_failed: %w", err))
	}

	service.logger.InfoContext(ctx, "password_reset", slog.String("account_id", account.ID))
	return nil
}

// RefreshTokens rotates the session pair. The old refresh token is not
// revoked server-side; its expiry alone bounds exposure.
func (service *Service) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	subjectID, err := service.verifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	// The account must still exist; a hard-deleted account's tokens die here.
	if _, err := service.getByID(ctx, subjectID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, apperr.Unauthorized("Unauthorized, please login first")
		}
		return TokenPair{}, err
	}

	accessToken, newRefreshToken, err := service.tokens.IssuePair(subjectID)
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("service_token_issue_failed: %w", err))
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// MyProfile returns the sanitized account for an authenticated subject.
func (service *Service) MyProfile(ctx context.Context, subjectID string) (*Account, error) {
	return service.requireActiveVerified(ctx, subjectID)
}

// UpdateProfile applies name/bio changes and an optional avatar upload.
func (service *Service) UpdateProfile(ctx context.Context, subjectID string, input UpdateProfileInput) (*Account, error) {
	account, err := service.requireActiveVerified(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	patch := ProfilePatch{}
	if input.Name != "" {
		name := normalize.Name(input.Name)
		patch.Name = &name
	}
	if input.Bio != "" {
		bio := strings.TrimSpace(input.Bio)
		patch.Bio = &bio
	}

	if input.Avatar != nil {
		key := avatarKey(account.ID, input.Avatar.FileName)
		url, err := service.blobs.Put(ctx, key, input.Avatar.ContentType, input.Avatar.Content)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("service_avatar_upload_failed: %w", err))
		}

		// A previous avatar under a different key is garbage now.
		if account.AvatarKey != "" && account.AvatarKey != key {
			if err := service.blobs.Delete(ctx, account.AvatarKey); err != nil {
				service.logger.WarnContext(ctx, "avatar_cleanup_failed",
					slog.String("key", account.AvatarKey),
					slog.String("error", err.Error()),
				)
			}
		}

		patch.AvatarURL = &url
		patch.AvatarKey = &key
	}

	updated, err := service.accounts.UpdateProfile(ctx, account.ID, patch)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("service_profile_update_failed: %w", err))
	}
	return updated, nil
}

// DeleteAccount applies a soft or hard deletion for the subject.
func (service *Service) DeleteAccount(ctx context.Context, subjectID, deleteType string) error {
	currentTime := service.now()

	account, err := service.getByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.Unauthorized("Unauthorized, please login first")
		}
		return err
	}

	if account.IsDeleted {
		return apperr.BadRequest("Your account has already been deactivated!")
	}
	if account.IsLocked(currentTime) {
		return apperr.Locked(account.LockRemainingMinutes(currentTime))
	}

	switch deleteType {
	case "soft":
		return service.lifecycle.SoftDelete(ctx, account)
	case "hard":
		return service.lifecycle.HardDelete(ctx, account)
	}
	return apperr.BadRequest("Unknown delete type")
}

// ReactivateAccount clears a soft deletion once the window has opened.
func (service *Service) ReactivateAccount(ctx context.Context, subjectID string) error {
	account, err := service.getByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.Unauthorized("Unauthorized, please login first")
		}
		return err
	}

	if !account.IsEmailVerified {
		return apperr.Forbidden("Please verify your email")
	}

	return service.lifecycle.Reactivate(ctx, account)
}

// SignOut validates the presented refresh token. Cookie clearing is the
// transport layer's job; with no server-side session store there is nothing
// else to invalidate.
func (service *Service) SignOut(ctx context.Context, refreshToken string) error {
	_, err := service.verifyRefresh(refreshToken)
	return err
}

// # Internal Helpers

// requireActiveVerified loads the subject's account and enforces the shared
// profile-operation guards.
func (service *Service) requireActiveVerified(ctx context.Context, subjectID string) (*Account, error) {
	account, err := service.getByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, apperr.Unauthorized("Unauthorized, please login first")
		}
		return nil, err
	}

	if !account.IsEmailVerified {
		return nil, apperr.Forbidden("Please verify your email")
	}
	if account.IsDeleted {
		return nil, apperr.BadRequest("Your account has been deleted!")
	}

	return account, nil
}

func (service *Service) verifyRefresh(refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperr.Unauthorized("Unauthorized, please login first")
	}
	subjectID, err := service.tokens.Verify(refreshToken, sec.TokenKindRefresh)
	if err != nil {
		return "", apperr.Unauthorized("Unauthorized, please login first")
	}
	return subjectID, nil
}

func (service *Service) getByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := service.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("service_account_lookup_failed: %w", err))
	}
	return account, nil
}

func (service *Service) getByID(ctx context.Context, id string) (*Account, error) {
	account, err := service.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("service_account_lookup_failed: %w", err))
	}
	return account, nil
}

// avatarKey derives a stable blob key from the account id and the uploaded
// file's extension.
func avatarKey(accountID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".bin"
	}
	return "avatars/" + accountID + ext
}
