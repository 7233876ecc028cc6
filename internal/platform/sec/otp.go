// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// # One-Time Passcodes

// GenerateOtpCode produces a fixed-length numeric code using crypto/rand.
//
// Leading zeros are preserved ("004217" is a valid 6-digit code), so the
// keyspace is exactly 10^length.
func GenerateOtpCode(length int) (string, error) {
	upperBound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	value, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate OTP code: %w", err)
	}

	return fmt.Sprintf("%0*d", length, value), nil
}

// HashOtpCode returns the hex-encoded SHA-256 digest of a code.
//
// Only this digest is ever persisted; the raw code exists solely in the
// outbound notification.
func HashOtpCode(code string) string {
	digest := sha256.Sum256([]byte(code))
	return hex.EncodeToString(digest[:])
}

// CompareOtpHash reports whether a candidate code matches a stored digest
// using a constant-time comparison.
func CompareOtpHash(candidateCode, storedHash string) bool {
	candidateHash := HashOtpCode(candidateCode)
	return subtle.ConstantTimeCompare([]byte(candidateHash), []byte(storedHash)) == 1
}

// # Reset-Transaction Tokens

// ResetToken derives the ephemeral reset-password token for an account.
//
// The value is deterministic per (account, secret): verifying a reset cookie
// is a recomputation, not a lookup, which keeps the reset transaction fully
// stateless on the server. The token is double-HMACed so the cookie value
// cannot be replayed as the inner token.
func ResetToken(accountID, secret string) string {
	inner := hmacHex(accountID, secret)
	return hmacHex(inner, secret)
}

// CompareResetToken reports whether a presented cookie value matches the
// derived token for the account, in constant time.
func CompareResetToken(presented, accountID, secret string) bool {
	expected := ResetToken(accountID, secret)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

func hmacHex(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
