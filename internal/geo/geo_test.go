package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZero(t *testing.T) {
	if d := DistanceKm(12.9716, 77.5946, 12.9716, 77.5946); d != 0 {
		t.Fatalf("distance between identical points = %f, want 0", d)
	}
}

func TestDistanceKmKnownPairs(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		// Bangalore city centre to airport, roughly 32 km as the crow flies.
		{"blr-city-to-airport", 12.9716, 77.5946, 13.1986, 77.7066, 28.0, 3.0},
		// One degree of latitude is ~111.19 km everywhere.
		{"one-degree-latitude", 0, 0, 1, 0, 111.19, 0.1},
		// Equatorial degree of longitude.
		{"one-degree-longitude", 0, 0, 0, 1, 111.19, 0.1},
	}
	for _, tc := range cases {
		got := DistanceKm(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
		if math.Abs(got-tc.wantKm) > tc.tolKm {
			t.Errorf("%s: DistanceKm = %f, want %f ± %f", tc.name, got, tc.wantKm, tc.tolKm)
		}
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	a := DistanceKm(12.97, 77.59, 13.08, 80.27)
	b := DistanceKm(13.08, 80.27, 12.97, 77.59)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", a, b)
	}
}
