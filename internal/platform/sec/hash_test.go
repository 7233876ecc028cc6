// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package sec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("produces a PHC-format argon2id string", func(t *testing.T) {
		hash, err := HashPassword("Secret123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("same password hashes differently each time", func(t *testing.T) {
		first, err := HashPassword("Secret123")
		require.NoError(t, err)
		second, err := HashPassword("Secret123")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)

	t.Run("accepts the correct password", func(t *testing.T) {
		assert.True(t, CheckPasswordHash("Secret123", hash))
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("Secret124", hash))
	})

	t.Run("rejects an empty stored hash", func(t *testing.T) {
		// OAuth-only accounts have no password hash at all.
		assert.False(t, CheckPasswordHash("Secret123", ""))
	})

	t.Run("rejects a malformed stored hash", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("Secret123", "$argon2id$not-a-real-hash"))
	})
}
