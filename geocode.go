package places

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/goliatone/go-errors"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a postal address to coordinates. Implementations
// wrapping a remote provider should honor ctx cancellation.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Coordinates, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, address string) (Coordinates, error)

func (f GeocoderFunc) Resolve(ctx context.Context, address string) (Coordinates, error) {
	return f(ctx, address)
}

// StaticGeocoder derives coordinates from the address text itself.
// The same address always resolves to the same point, which makes it
// usable offline and in tests where a real provider would be flaky.
type StaticGeocoder struct{}

func (StaticGeocoder) Resolve(_ context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, errors.New("address is required", errors.CategoryBadInput).
			WithTextCode("ADDRESS_REQUIRED")
	}

	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(address)))
	sum := h.Sum64()

	lat := float64(sum%180_000_000)/1_000_000 - 90
	lng := float64((sum/180_000_000)%360_000_000)/1_000_000 - 180

	return Coordinates{Lat: lat, Lng: lng}, nil
}
