package auth_test

import (
	"testing"

	"github.com/hugh/go-warden/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := auth.HashPassword("Secret123")
		require.NoError(t, err)
		assert.NotEqual(t, "Secret123", hash)
		assert.True(t, auth.CheckPassword("Secret123", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		hash, err := auth.HashPassword("Secret123")
		require.NoError(t, err)
		assert.False(t, auth.CheckPassword("secret123", hash))
	})

	t.Run("salts per hash", func(t *testing.T) {
		h1, err := auth.HashPassword("Secret123")
		require.NoError(t, err)
		h2, err := auth.HashPassword("Secret123")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.Error(t, err)
	})

	t.Run("check against empty hash fails", func(t *testing.T) {
		assert.False(t, auth.CheckPassword("Secret123", ""))
	})
}

func TestNewOpaqueToken(t *testing.T) {
	t.Run("emits 40 hex chars", func(t *testing.T) {
		token, err := auth.NewOpaqueToken()
		require.NoError(t, err)
		assert.Len(t, token, 40)
		assert.Regexp(t, "^[0-9a-f]+$", token)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := auth.NewOpaqueToken()
			require.NoError(t, err)
			assert.False(t, seen[token])
			seen[token] = true
		}
	})
}
