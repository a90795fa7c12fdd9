package geometry

import (
	"math"
)

const earthRadiusM = 6371000.0

// --- Geometry Helpers ---

// centralAngle is the great-circle angle in radians between two points.
func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	r1, r2 := lat1*math.Pi/180, lat2*math.Pi/180

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	// --- handle dateline crossing ---
	for dLon > math.Pi {
		dLon -= 2 * math.Pi
	}
	for dLon < -math.Pi {
		dLon += 2 * math.Pi
	}

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(r1)*math.Cos(r2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistM is the horizontal great-circle distance in metres.
func DistM(lat1, lon1, lat2, lon2 float64) float64 {
	return earthRadiusM * centralAngle(lat1, lon1, lat2, lon2)
}

// Dist3DM combines horizontal distance with the altitude difference.
func Dist3DM(lat1, lon1, alt1, lat2, lon2, alt2 float64) float64 {
	dxy := DistM(lat1, lon1, lat2, lon2)
	dz := alt2 - alt1
	return math.Sqrt(dxy*dxy + dz*dz)
}

// Bearing is the initial great-circle bearing from point 1 to point 2 in
// radians, in the range [-Pi, Pi] with 0 at true north.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	r1, r2 := lat1*math.Pi/180, lat2*math.Pi/180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(r2)
	x := math.Cos(r1)*math.Sin(r2) - math.Sin(r1)*math.Cos(r2)*math.Cos(dLon)

	return WrapPi(math.Atan2(y, x))
}

// WrapPi folds an angle in radians into [-Pi, Pi].
func WrapPi(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
