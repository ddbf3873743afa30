// Package tiles manages the fleet of geographic terrain tiles: loading
// elevation grids through an LRU-cached asynchronous loader and keeping
// each tile's adaptive mesh in step with the camera under per-frame
// load and rebuild budgets.
package tiles

import (
	"fmt"
	"time"

	"github.com/terravox/globe/internal/terrain"
	"github.com/terravox/globe/pkg/math"
)

const (
	// SpanDegrees is the angular extent of one tile in both axes.
	SpanDegrees = 15

	// LonBands and LatBands partition the sphere into the fixed fleet.
	LonBands = 360 / SpanDegrees
	LatBands = 180 / SpanDegrees

	// FleetSize is the total number of tiles covering the sphere.
	FleetSize = LonBands * LatBands
)

// Resolutions is the ordered set of allowed grid sizes. Each is 2^n+1
// so that the tile size is a power of two, a hard precondition of the
// triangle hierarchy.
var Resolutions = []int{513, 1025, 2049}

// ValidResolution reports whether r is one of the allowed grid sizes.
func ValidResolution(r int) bool {
	for _, v := range Resolutions {
		if v == r {
			return true
		}
	}
	return false
}

// ID identifies one fixed geographic cell by its south-west corner.
type ID struct {
	LatMin int // -90, -75, ... 75
	LonMin int // 0, 15, ... 345
}

// Name returns the storage name of the tile,
// tile_{latMin}N{latMax}N_{lonMin}E{lonMax}E.
func (id ID) Name() string {
	return fmt.Sprintf("tile_%dN%dN_%dE%dE",
		id.LatMin, id.LatMin+SpanDegrees, id.LonMin, id.LonMin+SpanDegrees)
}

// Bounds returns the tile's geographic extent.
func (id ID) Bounds() terrain.GeoBounds {
	return terrain.GeoBounds{
		LonMin: float64(id.LonMin),
		LonMax: float64(id.LonMin + SpanDegrees),
		LatMin: float64(id.LatMin),
		LatMax: float64(id.LatMin + SpanDegrees),
	}
}

// Tile is one managed cell of the fleet. Tiles are created once at
// startup and never destroyed; only their cached grid, error field and
// mesh change as the camera moves. All mutable fields are owned by the
// scheduler and touched only from its update call.
type Tile struct {
	ID ID

	// Center is the tile's midpoint on the render sphere, used for
	// culling and distance sorting.
	Center math.Vec3

	// BoundRadius is the radius of a sphere at Center guaranteed to
	// contain the tile's surface, including elevation headroom.
	BoundRadius float32

	// cached source data
	grid    *terrain.Grid
	gridRes int
	field   *terrain.ErrorField

	// live mesh state
	mesh     *terrain.Mesh
	meshGen  uint64
	builtTol float64
	builtExg float64

	visible bool
	loading bool

	// retry backoff for failed loads
	failCount int
	nextRetry time.Time
}

// newTile precomputes the cull geometry for one cell.
func newTile(id ID) *Tile {
	b := id.Bounds()
	lon, lat := b.Center()
	center := terrain.SpherePoint(lon, lat, 0, 1)

	// The bounding radius is the largest distance from the center to a
	// corner, padded for the highest exaggerated terrain we ever draw.
	radius := float32(0)
	for _, c := range [4][2]float64{
		{b.LonMin, b.LatMin}, {b.LonMax, b.LatMin},
		{b.LonMin, b.LatMax}, {b.LonMax, b.LatMax},
	} {
		d := terrain.SpherePoint(c[0], c[1], 0, 1).Sub(center).Length()
		if d > radius {
			radius = d
		}
	}
	const elevationHeadroom = 0.02 * terrain.RenderRadius
	return &Tile{ID: id, Center: center, BoundRadius: radius + elevationHeadroom}
}

// Visible reports whether the tile survived the last cull pass.
func (t *Tile) Visible() bool { return t.visible }

// Mesh returns the live mesh, or nil if none has been built.
func (t *Tile) Mesh() *terrain.Mesh { return t.mesh }

// MeshGen is a generation counter bumped on every mesh swap, letting a
// renderer detect when its uploaded GPU buffers are stale.
func (t *Tile) MeshGen() uint64 { return t.meshGen }

// makeFleet creates the full grid of tiles covering the sphere.
func makeFleet() []*Tile {
	fleet := make([]*Tile, 0, FleetSize)
	for lat := -90; lat < 90; lat += SpanDegrees {
		for lon := 0; lon < 360; lon += SpanDegrees {
			fleet = append(fleet, newTile(ID{LatMin: lat, LonMin: lon}))
		}
	}
	return fleet
}
