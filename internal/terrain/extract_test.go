package terrain

import (
	"fmt"
	gomath "math"
	"testing"
)

func extractField(t *testing.T, g *Grid) *ErrorField {
	t.Helper()
	h, err := NewHierarchy(g.Size)
	if err != nil {
		t.Fatal(err)
	}
	f, err := h.ComputeErrors(g)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// posKey quantizes a position for set comparison across float paths.
func posKey(x, y, z float32) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", x, y, z)
}

func TestExtractFullDetailRoundTrip(t *testing.T) {
	g := testGrid(t, 5)
	f := extractField(t, g)

	mesh := f.Extract(ExtractOptions{MaxError: 0, Exaggeration: 1})

	if mesh.VertexCount != g.Size*g.Size {
		t.Fatalf("vertex count = %d, want %d", mesh.VertexCount, g.Size*g.Size)
	}
	if mesh.TriangleCount != 2*(g.Size-1)*(g.Size-1) {
		t.Fatalf("triangle count = %d, want %d", mesh.TriangleCount, 2*(g.Size-1)*(g.Size-1))
	}

	got := make(map[string]bool, mesh.VertexCount)
	for v := 0; v < mesh.VertexCount; v++ {
		got[posKey(mesh.Positions[v*3], mesh.Positions[v*3+1], mesh.Positions[v*3+2])] = true
	}

	// Every grid sample must be reproduced exactly by the same
	// lon/lat/elevation mapping.
	tileSize := float64(g.Size - 1)
	for y := 0; y < g.Size; y++ {
		for x := 0; x < g.Size; x++ {
			lon := g.Bounds.LonAt(float64(x) / tileSize)
			lat := g.Bounds.LatAt(float64(y) / tileSize)
			want := SpherePoint(lon, lat, float64(g.At(x, y)), 1)
			if !got[posKey(want.X, want.Y, want.Z)] {
				t.Fatalf("grid sample (%d,%d) missing from full-detail mesh", x, y)
			}
		}
	}
}

func TestExtractMinimalMesh(t *testing.T) {
	g := testGrid(t, 9)
	f := extractField(t, g)

	mesh := f.Extract(ExtractOptions{MaxError: gomath.Inf(1), Exaggeration: 1})

	if mesh.TriangleCount != 2 {
		t.Errorf("triangle count = %d, want 2", mesh.TriangleCount)
	}
	if mesh.VertexCount != 4 {
		t.Errorf("vertex count = %d, want 4", mesh.VertexCount)
	}
	if len(mesh.Indices) != 6 {
		t.Errorf("index count = %d, want 6", len(mesh.Indices))
	}

	// The four vertices are the grid corners.
	corners := make(map[string]bool)
	tileSize := float64(g.Size - 1)
	for _, c := range [][2]int{{0, 0}, {g.Size - 1, 0}, {0, g.Size - 1}, {g.Size - 1, g.Size - 1}} {
		lon := g.Bounds.LonAt(float64(c[0]) / tileSize)
		lat := g.Bounds.LatAt(float64(c[1]) / tileSize)
		p := SpherePoint(lon, lat, float64(g.At(c[0], c[1])), 1)
		corners[posKey(p.X, p.Y, p.Z)] = true
	}
	for v := 0; v < mesh.VertexCount; v++ {
		k := posKey(mesh.Positions[v*3], mesh.Positions[v*3+1], mesh.Positions[v*3+2])
		if !corners[k] {
			t.Errorf("vertex %d is not a grid corner", v)
		}
	}
}

func TestExtractCenterSpikeScenario(t *testing.T) {
	g := &Grid{
		Size:    3,
		Samples: []float32{0, 0, 0, 0, 100, 0, 0, 0, 0},
		Bounds:  testBounds(),
	}
	f := extractField(t, g)

	// A tolerance below the spike keeps all four leaf triangles and the
	// center vertex.
	fine := f.Extract(ExtractOptions{MaxError: 1, Exaggeration: 1})
	if fine.TriangleCount != 4 {
		t.Errorf("maxError=1: triangle count = %d, want 4", fine.TriangleCount)
	}
	if fine.VertexCount != 5 {
		t.Errorf("maxError=1: vertex count = %d, want 5", fine.VertexCount)
	}
	center := SpherePoint(g.Bounds.LonAt(0.5), g.Bounds.LatAt(0.5), 100, 1)
	found := false
	for v := 0; v < fine.VertexCount; v++ {
		if posKey(fine.Positions[v*3], fine.Positions[v*3+1], fine.Positions[v*3+2]) ==
			posKey(center.X, center.Y, center.Z) {
			found = true
		}
	}
	if !found {
		t.Error("maxError=1: raised center vertex missing")
	}

	// A tolerance above the spike collapses to the two root triangles.
	coarse := f.Extract(ExtractOptions{MaxError: 200, Exaggeration: 1})
	if coarse.TriangleCount != 2 {
		t.Errorf("maxError=200: triangle count = %d, want 2", coarse.TriangleCount)
	}
	if coarse.VertexCount != 4 {
		t.Errorf("maxError=200: vertex count = %d, want 4", coarse.VertexCount)
	}
}

func TestExtractNormalsOutwardAndUnit(t *testing.T) {
	g := testGrid(t, 9)
	f := extractField(t, g)
	mesh := f.Extract(ExtractOptions{MaxError: 0, Exaggeration: 1})

	for v := 0; v < mesh.VertexCount; v++ {
		nx := mesh.Normals[v*3]
		ny := mesh.Normals[v*3+1]
		nz := mesh.Normals[v*3+2]
		l := gomath.Sqrt(float64(nx*nx + ny*ny + nz*nz))
		if gomath.Abs(l-1) > 1e-4 {
			t.Fatalf("vertex %d: normal length %g, want 1", v, l)
		}

		// Terrain slopes are tiny compared to the sphere radius, so every
		// smooth normal must point away from the planet center.
		px := mesh.Positions[v*3]
		py := mesh.Positions[v*3+1]
		pz := mesh.Positions[v*3+2]
		if nx*px+ny*py+nz*pz <= 0 {
			t.Fatalf("vertex %d: normal points inward", v)
		}
	}
}

func TestExtractUVRange(t *testing.T) {
	g := testGrid(t, 5)
	f := extractField(t, g)
	mesh := f.Extract(ExtractOptions{MaxError: 0, Exaggeration: 1})

	// Bounds lon 15..30, lat 30..45 map into fixed UV sub-ranges.
	for v := 0; v < mesh.VertexCount; v++ {
		u := mesh.UVs[v*2]
		vv := mesh.UVs[v*2+1]
		if u < 15.0/360-1e-6 || u > 30.0/360+1e-6 {
			t.Fatalf("vertex %d: u = %g out of tile range", v, u)
		}
		if vv < 45.0/180-1e-6 || vv > 60.0/180+1e-6 {
			t.Fatalf("vertex %d: v = %g out of tile range", v, vv)
		}
	}
}

func TestExtractExaggerationScalesRadius(t *testing.T) {
	g := &Grid{
		Size:    3,
		Samples: []float32{0, 0, 0, 0, 1000, 0, 0, 0, 0},
		Bounds:  testBounds(),
	}
	f := extractField(t, g)

	flat := f.Extract(ExtractOptions{MaxError: 0, Exaggeration: 1})
	tall := f.Extract(ExtractOptions{MaxError: 0, Exaggeration: 10})

	maxRadius := func(m *Mesh) float64 {
		best := 0.0
		for v := 0; v < m.VertexCount; v++ {
			x := float64(m.Positions[v*3])
			y := float64(m.Positions[v*3+1])
			z := float64(m.Positions[v*3+2])
			r := gomath.Sqrt(x*x + y*y + z*z)
			if r > best {
				best = r
			}
		}
		return best
	}

	r1 := maxRadius(flat) - RenderRadius
	r10 := maxRadius(tall) - RenderRadius
	if gomath.Abs(r10-10*r1) > 1e-2 {
		t.Errorf("radial displacement %g at x10 exaggeration, want %g", r10, 10*r1)
	}
}
