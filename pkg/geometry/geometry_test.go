package geometry

import (
	"math"
	"testing"
)

func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{name: "due north", lat1: 47.0, lon1: 8.0, lat2: 47.1, lon2: 8.0, want: 0},
		{name: "due south", lat1: 47.1, lon1: 8.0, lat2: 47.0, lon2: 8.0, want: math.Pi},
		{name: "due east on equator", lat1: 0, lon1: 8.0, lat2: 0, lon2: 8.1, want: math.Pi / 2},
		{name: "due west on equator", lat1: 0, lon1: 8.1, lat2: 0, lon2: 8.0, want: -math.Pi / 2},
		{name: "across dateline eastbound", lat1: 0, lon1: 179.9, lat2: 0, lon2: -179.9, want: math.Pi / 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			// north/south results may land on either side of the wrap
			if math.Abs(WrapPi(got-tc.want)) > 1e-6 {
				t.Fatalf("Bearing() = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestDistances(t *testing.T) {
	// one minute of latitude is one nautical mile
	m := DistM(51.0, -0.5, 51.0+1.0/60.0, -0.5)
	if math.Abs(m-1853) > 5 {
		t.Errorf("DistM() = %f, want ~1853", m)
	}

	if d := DistM(10, 10, 10, 10); d != 0 {
		t.Errorf("DistM() of identical points = %f, want 0", d)
	}

	d3 := Dist3DM(10, 10, 100, 10, 10, 130)
	if math.Abs(d3-30) > 1e-9 {
		t.Errorf("Dist3DM() vertical only = %f, want 30", d3)
	}
}

func TestWrapPi(t *testing.T) {
	if got := WrapPi(3 * math.Pi); math.Abs(math.Abs(got)-math.Pi) > 1e-9 {
		t.Errorf("WrapPi(3pi) = %f", got)
	}
	if got := WrapPi(-math.Pi / 2); got != -math.Pi/2 {
		t.Errorf("WrapPi(-pi/2) = %f", got)
	}
	if !math.IsNaN(WrapPi(math.NaN())) {
		t.Error("WrapPi(NaN) should stay NaN")
	}
}
