package places_test

import (
	"testing"

	places "github.com/goliatone/go-places"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeOwner(t *testing.T) {
	ownerID := uuid.New()

	t.Run("owner passes", func(t *testing.T) {
		assert.NoError(t, places.AuthorizeOwner(ownerID, ownerID.String()))
	})

	t.Run("different caller is rejected", func(t *testing.T) {
		err := places.AuthorizeOwner(ownerID, uuid.NewString())
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrNotAuthorized)
	})

	t.Run("unparseable caller id is rejected", func(t *testing.T) {
		err := places.AuthorizeOwner(ownerID, "not-a-uuid")
		require.Error(t, err)
	})

	t.Run("empty caller id is rejected", func(t *testing.T) {
		err := places.AuthorizeOwner(ownerID, "")
		require.Error(t, err)
	})
}
