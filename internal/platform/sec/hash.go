// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, OTP
// digests) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer via narrow interfaces.
package sec

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
//
// # Tuning
//
// 64 MiB / 3 passes / 2 lanes follows the RFC 9106 second recommended option,
// balancing login latency against GPU cracking cost. Changing these values is
// safe: the parameters travel inside each encoded hash, so existing
// credentials keep verifying.
const (
	argonMemoryKiB  uint32 = 64 * 1024
	argonTime       uint32 = 3
	argonThreads    uint8  = 2
	argonSaltLength        = 16
	argonKeyLength  uint32 = 32
)

// HashPassword hashes a plain-text password with argon2id.
//
// The result uses the standard PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt-b64>$<hash-b64>
func HashPassword(plainTextPassword string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec: failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plainTextPassword), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// CheckPasswordHash compares a plain-text password with its encoded argon2id hash.
//
// The comparison of the derived keys is constant-time. Malformed hashes
// (including the empty hash of an OAuth-only account) simply fail the check.
func CheckPasswordHash(plainTextPassword, encodedHash string) bool {
	salt, expected, params, ok := parseArgon2Hash(encodedHash)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(plainTextPassword), salt, params.time, params.memory, params.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
}

// parseArgon2Hash splits a PHC-formatted argon2id string into its components.
func parseArgon2Hash(encodedHash string) (salt, hash []byte, params argon2Params, ok bool) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, params, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, params, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, false
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, params, false
	}

	return salt, hash, params, true
}
