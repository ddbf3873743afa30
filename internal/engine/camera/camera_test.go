package camera

import (
	"testing"

	"github.com/terravox/globe/internal/terrain"
)

func TestPositionOnPrimeMeridian(t *testing.T) {
	c := New()
	pos := c.Position()

	if pos.Z <= 0 {
		t.Errorf("default camera should sit on +Z, got %+v", pos)
	}
	if absf(pos.X) > 1e-3 || absf(pos.Y) > 1e-3 {
		t.Errorf("default camera off axis: %+v", pos)
	}
	if got := pos.Length(); absf(got-c.Distance) > 1e-2 {
		t.Errorf("distance = %g, want %g", got, c.Distance)
	}
}

func TestZoomNeverCrossesSurface(t *testing.T) {
	c := New()
	for i := 0; i < 200; i++ {
		c.HandleZoom(5)
	}
	if c.Distance < c.MinDistance {
		t.Errorf("distance %g below minimum %g", c.Distance, c.MinDistance)
	}
	if c.Distance <= terrain.RenderRadius {
		t.Errorf("camera went underground: %g", c.Distance)
	}

	for i := 0; i < 200; i++ {
		c.HandleZoom(-5)
	}
	if c.Distance > c.MaxDistance {
		t.Errorf("distance %g above maximum %g", c.Distance, c.MaxDistance)
	}
}

func TestDragClampsLatitude(t *testing.T) {
	c := New()
	for i := 0; i < 500; i++ {
		c.HandleDrag(0, 100)
	}
	if c.Latitude > c.MaxLatitude {
		t.Errorf("latitude %g beyond clamp %g", c.Latitude, c.MaxLatitude)
	}
	for i := 0; i < 1000; i++ {
		c.HandleDrag(0, -100)
	}
	if c.Latitude < -c.MaxLatitude {
		t.Errorf("latitude %g beyond clamp %g", c.Latitude, -c.MaxLatitude)
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
