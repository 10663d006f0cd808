package places_test

import (
	"context"
	"testing"

	places "github.com/goliatone/go-places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGeocoder(t *testing.T) {
	geo := places.StaticGeocoder{}
	ctx := context.Background()

	t.Run("same address resolves to the same point", func(t *testing.T) {
		a, err := geo.Resolve(ctx, "20 W 34th St, New York, NY 10001")
		require.NoError(t, err)

		b, err := geo.Resolve(ctx, "20 w 34th st, new york, ny 10001")
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("coordinates stay in range", func(t *testing.T) {
		for _, address := range []string{
			"20 W 34th St, New York, NY 10001",
			"Sherwood Drive, Bletchley, Milton Keynes",
			"1 Infinite Loop, Cupertino, CA",
		} {
			coords, err := geo.Resolve(ctx, address)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, coords.Lat, -90.0)
			assert.LessOrEqual(t, coords.Lat, 90.0)
			assert.GreaterOrEqual(t, coords.Lng, -180.0)
			assert.LessOrEqual(t, coords.Lng, 180.0)
		}
	})

	t.Run("different addresses resolve to different points", func(t *testing.T) {
		a, err := geo.Resolve(ctx, "20 W 34th St, New York, NY 10001")
		require.NoError(t, err)

		b, err := geo.Resolve(ctx, "Sherwood Drive, Bletchley, Milton Keynes")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("empty address is rejected", func(t *testing.T) {
		_, err := geo.Resolve(ctx, "   ")
		require.Error(t, err)
	})
}
