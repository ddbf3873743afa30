package tiles

import (
	"testing"

	"github.com/terravox/globe/internal/terrain"
)

func TestTileName(t *testing.T) {
	cases := []struct {
		id   ID
		want string
	}{
		{ID{LatMin: 0, LonMin: 0}, "tile_0N15N_0E15E"},
		{ID{LatMin: 30, LonMin: 135}, "tile_30N45N_135E150E"},
		{ID{LatMin: -90, LonMin: 345}, "tile_-90N-75N_345E360E"},
		{ID{LatMin: -15, LonMin: 0}, "tile_-15N0N_0E15E"},
		{ID{LatMin: 75, LonMin: 180}, "tile_75N90N_180E195E"},
	}
	for _, c := range cases {
		if got := c.id.Name(); got != c.want {
			t.Errorf("%+v: name = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestTileBounds(t *testing.T) {
	b := ID{LatMin: -30, LonMin: 45}.Bounds()
	want := terrain.GeoBounds{LonMin: 45, LonMax: 60, LatMin: -30, LatMax: -15}
	if b != want {
		t.Errorf("bounds = %+v, want %+v", b, want)
	}
}

func TestMakeFleet(t *testing.T) {
	fleet := makeFleet()
	if len(fleet) != FleetSize {
		t.Fatalf("fleet size = %d, want %d", len(fleet), FleetSize)
	}
	if FleetSize != 288 {
		t.Fatalf("FleetSize = %d, want 288", FleetSize)
	}

	seen := make(map[ID]bool)
	for _, tile := range fleet {
		if seen[tile.ID] {
			t.Fatalf("duplicate tile %v", tile.ID)
		}
		seen[tile.ID] = true

		if tile.ID.LatMin < -90 || tile.ID.LatMin > 75 || tile.ID.LatMin%SpanDegrees != 0 {
			t.Errorf("bad latMin %d", tile.ID.LatMin)
		}
		if tile.ID.LonMin < 0 || tile.ID.LonMin > 345 || tile.ID.LonMin%SpanDegrees != 0 {
			t.Errorf("bad lonMin %d", tile.ID.LonMin)
		}

		// Centers sit on the render sphere; the bound radius comfortably
		// covers the 15 degree cell.
		r := tile.Center.Length()
		if r < 0.99*terrain.RenderRadius || r > 1.01*terrain.RenderRadius {
			t.Errorf("%v: center radius %g off the sphere", tile.ID, r)
		}
		if tile.BoundRadius <= 0 {
			t.Errorf("%v: non-positive bound radius", tile.ID)
		}
	}
}

func TestValidResolution(t *testing.T) {
	for _, r := range Resolutions {
		if !ValidResolution(r) {
			t.Errorf("resolution %d should be valid", r)
		}
		if !isPow2(r - 1) {
			t.Errorf("resolution %d - 1 is not a power of two", r)
		}
	}
	for _, r := range []int{0, 512, 1024, 1026, 4097} {
		if ValidResolution(r) {
			t.Errorf("resolution %d should be invalid", r)
		}
	}
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }
