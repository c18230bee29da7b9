package matching

import (
	"math"

	"carpool/internal/types"
)

const earthRadiusMi = 3959.0

// DistanceMiles returns the great-circle (haversine) distance in miles.
// NaN inputs propagate as NaN.
func DistanceMiles(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Lat))*math.Cos(degreesToRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMi * c
}

// DetourMinutes estimates how many extra minutes the requester drives by
// picking up the candidate on the way to work. Never negative.
func DetourMinutes(requester, candidate, work types.Point, minutesPerMile float64) float64 {
	direct := DistanceMiles(requester, work)
	via := DistanceMiles(requester, candidate) + DistanceMiles(candidate, work)
	return math.Max(0, via-direct) * minutesPerMile
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
