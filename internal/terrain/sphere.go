package terrain

import (
	gomath "math"

	"github.com/terravox/globe/pkg/math"
)

const (
	// RenderRadius is the radius of the rendered globe in world units.
	RenderRadius = 1000.0

	// EarthRadiusMeters scales elevation into radial displacement.
	EarthRadiusMeters = 6371000.0
)

// SpherePoint places a geographic position on the render sphere.
// Elevation perturbs the radius by elev/EarthRadiusMeters scaled by the
// exaggeration factor. World space is y-up with lat 0, lon 0 on +Z and
// longitude growing eastward toward +X.
func SpherePoint(lonDeg, latDeg, elevMeters, exaggeration float64) math.Vec3 {
	r := RenderRadius * (1 + elevMeters/EarthRadiusMeters*exaggeration)
	lat := latDeg * gomath.Pi / 180
	lon := lonDeg * gomath.Pi / 180
	cosLat := gomath.Cos(lat)
	return math.Vec3{
		X: float32(r * cosLat * gomath.Sin(lon)),
		Y: float32(r * gomath.Sin(lat)),
		Z: float32(r * cosLat * gomath.Cos(lon)),
	}
}

// SphereUV returns texture coordinates for a geographic position,
// matching the equirectangular parameterization of the base sphere:
// u wraps east from lon 0, v runs north to south.
func SphereUV(lonDeg, latDeg float64) (u, v float32) {
	return float32(lonDeg / 360), float32((90 - latDeg) / 180)
}
