package places_test

import (
	"testing"

	places "github.com/goliatone/go-places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes a password", func(t *testing.T) {
		hash, err := places.HashPasswordWithCost("correct-horse", 4)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "correct-horse", hash)
	})

	t.Run("rejects an empty password", func(t *testing.T) {
		_, err := places.HashPassword("")
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrNoEmptyString)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		a, err := places.HashPasswordWithCost("correct-horse", 4)
		require.NoError(t, err)
		b, err := places.HashPasswordWithCost("correct-horse", 4)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := places.HashPasswordWithCost("correct-horse", 4)
	require.NoError(t, err)

	t.Run("accepts the right password", func(t *testing.T) {
		assert.NoError(t, places.ComparePasswordAndHash("correct-horse", hash))
	})

	t.Run("rejects the wrong password", func(t *testing.T) {
		err := places.ComparePasswordAndHash("wrong-horse", hash)
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrMismatchedHashAndPassword)
	})

	t.Run("rejects a malformed hash", func(t *testing.T) {
		err := places.ComparePasswordAndHash("correct-horse", "not-a-bcrypt-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, places.ErrMismatchedHashAndPassword)
	})
}
