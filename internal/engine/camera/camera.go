// Package camera implements the orbit camera for globe viewing.
package camera

import (
	gomath "math"

	"github.com/terravox/globe/internal/terrain"
	"github.com/terravox/globe/pkg/math"
)

// GlobeCamera orbits the globe center at the origin. Longitude and
// latitude are the orbital angles in radians; Distance is measured
// from the globe center, never from the surface.
type GlobeCamera struct {
	Longitude float32 // yaw around the poles
	Latitude  float32 // pitch, clamped short of the poles
	Distance  float32

	MinDistance float32
	MaxDistance float32
	MaxLatitude float32

	DragSensitivity float32
	ZoomSensitivity float32

	FovY float32
	Near float32
	Far  float32
}

// New returns a camera parked above the prime meridian at a distance
// showing the whole globe.
func New() *GlobeCamera {
	return &GlobeCamera{
		Distance:        3 * terrain.RenderRadius,
		MinDistance:     1.03 * terrain.RenderRadius,
		MaxDistance:     8 * terrain.RenderRadius,
		MaxLatitude:     1.55, // just short of the poles, keeps LookAt stable
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            gomath.Pi / 4,
		Near:            1,
		Far:             20 * terrain.RenderRadius,
	}
}

// Position returns the camera position in world space.
func (c *GlobeCamera) Position() math.Vec3 {
	cosLat := float32(gomath.Cos(float64(c.Latitude)))
	return math.Vec3{
		X: c.Distance * cosLat * float32(gomath.Sin(float64(c.Longitude))),
		Y: c.Distance * float32(gomath.Sin(float64(c.Latitude))),
		Z: c.Distance * cosLat * float32(gomath.Cos(float64(c.Longitude))),
	}
}

// ViewMatrix returns the view matrix looking at the globe center.
func (c *GlobeCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), math.Vec3{}, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for the given
// viewport aspect ratio (width / height).
func (c *GlobeCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view, the matrix the scheduler
// culls against and the renderer uploads.
func (c *GlobeCamera) ViewProjection(aspect float32) math.Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// HandleDrag rotates the orbit from a mouse drag delta. Sensitivity
// shrinks with altitude so the ground speed under the cursor stays
// roughly constant while zoomed in.
func (c *GlobeCamera) HandleDrag(deltaX, deltaY float32) {
	scale := c.DragSensitivity * (c.Distance - terrain.RenderRadius) / (2 * terrain.RenderRadius)
	c.Longitude -= deltaX * scale
	c.Latitude += deltaY * scale

	if c.Latitude > c.MaxLatitude {
		c.Latitude = c.MaxLatitude
	}
	if c.Latitude < -c.MaxLatitude {
		c.Latitude = -c.MaxLatitude
	}
}

// HandleZoom moves the camera along the view ray. Zoom is proportional
// to the current altitude, so it decelerates on approach and never
// crosses the surface.
func (c *GlobeCamera) HandleZoom(delta float32) {
	c.Distance -= delta * (c.Distance - terrain.RenderRadius) * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}
