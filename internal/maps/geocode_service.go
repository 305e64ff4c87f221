// README: Google Maps geocoding for donation pickup addresses.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"mealbridge/internal/types"
)

// GeocodeService resolves street addresses to coordinates via the Google
// Maps Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a GeocodeService with the given API key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Locate returns the coordinates of the first geocoding match for address.
func (s *GeocodeService) Locate(ctx context.Context, address string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
