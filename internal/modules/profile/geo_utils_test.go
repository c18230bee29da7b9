package profile

import (
	"math"
	"testing"

	"carpool/internal/types"
)

func strPtr(s string) *string { return &s }

func TestAreaHint(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "full google address", in: strPtr("123 Main St, Verona, WI 53593, USA"), want: "Verona"},
		{name: "single component", in: strPtr("Verona"), want: ""},
		{name: "blank second part", in: strPtr("123 Main St, , WI"), want: ""},
		{name: "padded", in: strPtr("1 Elm Rd,   Fitchburg  ,WI"), want: "Fitchburg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AreaHint(tt.in); got != tt.want {
				t.Errorf("AreaHint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoundingBox_EnclosesRadius(t *testing.T) {
	center := types.Point{Lat: 42.90, Lng: -89.50}
	box := BoundingBox(center, 30)

	// 30 miles is roughly 0.435 degrees of latitude.
	if math.Abs((box.MaxLat-center.Lat)-30.0/69.0) > 1e-9 {
		t.Errorf("unexpected lat span: %+v", box)
	}
	if box.MaxLng-center.Lng <= box.MaxLat-center.Lat {
		t.Errorf("longitude span should widen away from the equator: %+v", box)
	}
	if box.MinLat >= center.Lat || box.MinLng >= center.Lng {
		t.Errorf("box does not surround center: %+v", box)
	}
}

func TestBoundingBox_Poles(t *testing.T) {
	box := BoundingBox(types.Point{Lat: 90, Lng: 0}, 10)
	if box.MaxLat != 90 {
		t.Errorf("lat must be clamped, got %v", box.MaxLat)
	}
	if box.MaxLng-box.MinLng != 360 {
		t.Errorf("at the pole every longitude is in range, got %+v", box)
	}
}

func TestEligible(t *testing.T) {
	if (UserLocation{}).Eligible() {
		t.Error("user without coordinates must not be eligible")
	}
	u := UserLocation{Home: &types.Point{Lat: 42.9, Lng: -89.5}}
	if !u.Eligible() {
		t.Error("geocoded user must be eligible")
	}
	u.Home = &types.Point{Lat: math.NaN(), Lng: -89.5}
	if u.Eligible() {
		t.Error("NaN coordinates must not be eligible")
	}
}
