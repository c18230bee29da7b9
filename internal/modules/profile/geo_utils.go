// README: Pure helpers for location privacy and candidate pre-selection.
package profile

import (
	"math"
	"strings"

	"carpool/internal/types"
)

const milesPerDegreeLat = 69.0

// Box is a lat/lng rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle enclosing every point within radiusMi of
// center. It is a superset of the circle; callers still apply the exact
// great-circle check.
func BoundingBox(center types.Point, radiusMi float64) Box {
	dLat := radiusMi / milesPerDegreeLat
	cos := math.Cos(degreesToRadians(center.Lat))
	dLng := 180.0
	if cos > 1e-6 {
		dLng = math.Min(180, radiusMi/(milesPerDegreeLat*cos))
	}
	return Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

// AreaHint reduces an address to its most local area name: the second
// comma-separated component ("123 Main St, Verona, WI" -> "Verona").
// An empty string means nothing may be shown.
func AreaHint(address *string) string {
	if address == nil {
		return ""
	}
	parts := strings.Split(*address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
