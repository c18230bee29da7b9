// README: Google Geocoding client that resolves a home address to coordinates.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"carpool/internal/types"
)

// GeocodeService wraps the Google Maps Geocoding API.
type GeocodeService struct {
	client *maps.Client
	region string
}

func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client, region: "us"}, nil
}

// Geocode returns the first result's location. ok is false when the address
// resolved to nothing.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, bool, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  s.region,
	})
	if err != nil {
		return types.Point{}, false, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, false, nil
	}
	loc := results[0].Geometry.Location
	p := types.Point{Lat: loc.Lat, Lng: loc.Lng}
	if !p.Valid() {
		return types.Point{}, false, nil
	}
	return p, true, nil
}
