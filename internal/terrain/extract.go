package terrain

import (
	gomath "math"

	"github.com/terravox/globe/pkg/math"
)

// Mesh is the renderable output of an extraction: interleavable vertex
// attributes in world space plus a triangle index list.
type Mesh struct {
	Positions []float32 // 3 per vertex
	Normals   []float32 // 3 per vertex, unit length
	UVs       []float32 // 2 per vertex
	Indices   []uint32  // 3 per triangle

	VertexCount   int
	TriangleCount int
}

// ExtractOptions control one extraction pass.
type ExtractOptions struct {
	// MaxError is the tolerance in meters. Vertices whose stored error
	// is within the tolerance are omitted. 0 reproduces the full grid,
	// +Inf yields the minimal two-triangle mesh.
	MaxError float64

	// Exaggeration multiplies the elevation-driven radial displacement.
	Exaggeration float64
}

// Extract walks the triangle hierarchy top-down and emits the minimal
// triangle set whose local error is within the tolerance. Two passes:
// the first counts vertices and triangles and assigns deduplicated
// vertex ids through a dense index map, the second projects grid
// corners into world space and writes the index list.
func (f *ErrorField) Extract(opts ExtractOptions) *Mesh {
	h := f.hier
	size := h.GridSize

	idx := h.indices
	for i := range idx {
		idx[i] = 0
	}

	// count pass
	numVertices := 0
	numTriangles := 0
	f.walk(opts.MaxError, func(ax, ay, bx, by, cx, cy int32) {
		for _, p := range [3]int32{ay*int32(size) + ax, by*int32(size) + bx, cy*int32(size) + cx} {
			if idx[p] == 0 {
				numVertices++
				idx[p] = uint32(numVertices)
			}
		}
		numTriangles++
	})

	mesh := &Mesh{
		Positions:     make([]float32, numVertices*3),
		Normals:       make([]float32, numVertices*3),
		UVs:           make([]float32, numVertices*2),
		Indices:       make([]uint32, 0, numTriangles*3),
		VertexCount:   numVertices,
		TriangleCount: numTriangles,
	}

	// emit pass
	f.walk(opts.MaxError, func(ax, ay, bx, by, cx, cy int32) {
		a := f.emitVertex(mesh, ax, ay, opts.Exaggeration)
		b := f.emitVertex(mesh, bx, by, opts.Exaggeration)
		c := f.emitVertex(mesh, cx, cy, opts.Exaggeration)
		mesh.Indices = append(mesh.Indices, a, b, c)
	})

	accumulateNormals(mesh)
	return mesh
}

// walk visits the leaf set of the adaptive traversal. The recursion of
// the reference algorithm is replaced by an explicit work stack so the
// depth (up to 2*log2(tileSize) levels) never touches the goroutine
// stack; children are pushed right-first so leaves appear in the same
// order recursion would produce.
func (f *ErrorField) walk(maxError float64, leaf func(ax, ay, bx, by, cx, cy int32)) {
	h := f.hier
	size := int32(h.GridSize)
	max := int32(h.TileSize)

	st := h.stack[:0]
	st = append(st, triangle{max, max, 0, 0, 0, max})
	st = append(st, triangle{0, 0, max, max, max, 0})

	for len(st) > 0 {
		t := st[len(st)-1]
		st = st[:len(st)-1]

		mx := (t.ax + t.bx) >> 1
		my := (t.ay + t.by) >> 1

		if abs32(t.ax-t.cx)+abs32(t.ay-t.cy) > 1 && float64(f.Errors[my*size+mx]) > maxError {
			st = append(st, triangle{t.bx, t.by, t.cx, t.cy, mx, my})
			st = append(st, triangle{t.cx, t.cy, t.ax, t.ay, mx, my})
			continue
		}
		leaf(t.ax, t.ay, t.bx, t.by, t.cx, t.cy)
	}
	h.stack = st[:0]
}

// emitVertex writes the world-space attributes for a grid corner and
// returns its index. Writes are idempotent: a vertex shared by several
// leaf triangles is simply rewritten with the same values.
func (f *ErrorField) emitVertex(mesh *Mesh, x, y int32, exaggeration float64) uint32 {
	h := f.hier
	g := f.grid
	v := h.indices[y*int32(h.GridSize)+x] - 1

	fx := float64(x) / float64(h.TileSize)
	fy := float64(y) / float64(h.TileSize)
	lon := g.Bounds.LonAt(fx)
	lat := g.Bounds.LatAt(fy)
	elev := float64(g.At(int(x), int(y)))

	p := SpherePoint(lon, lat, elev, exaggeration)
	mesh.Positions[v*3+0] = p.X
	mesh.Positions[v*3+1] = p.Y
	mesh.Positions[v*3+2] = p.Z

	u, vv := SphereUV(lon, lat)
	mesh.UVs[v*2+0] = u
	mesh.UVs[v*2+1] = vv
	return v
}

// accumulateNormals computes area-weighted smooth normals: every
// triangle adds its non-normalized edge cross product to each of its
// three vertices, then each sum is normalized.
func accumulateNormals(mesh *Mesh) {
	pos := mesh.Positions
	nrm := mesh.Normals

	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a := mesh.Indices[i] * 3
		b := mesh.Indices[i+1] * 3
		c := mesh.Indices[i+2] * 3

		e1 := math.Vec3{X: pos[b] - pos[a], Y: pos[b+1] - pos[a+1], Z: pos[b+2] - pos[a+2]}
		e2 := math.Vec3{X: pos[c] - pos[a], Y: pos[c+1] - pos[a+1], Z: pos[c+2] - pos[a+2]}
		n := e1.Cross(e2)

		for _, v := range [3]uint32{a, b, c} {
			nrm[v+0] += n.X
			nrm[v+1] += n.Y
			nrm[v+2] += n.Z
		}
	}

	for v := 0; v+2 < len(nrm); v += 3 {
		l := gomath.Sqrt(float64(nrm[v]*nrm[v] + nrm[v+1]*nrm[v+1] + nrm[v+2]*nrm[v+2]))
		if l == 0 {
			// degenerate fan; fall back to the outward radial direction
			out := math.Vec3{X: pos[v], Y: pos[v+1], Z: pos[v+2]}.Normalize()
			nrm[v], nrm[v+1], nrm[v+2] = out.X, out.Y, out.Z
			continue
		}
		inv := float32(1 / l)
		nrm[v] *= inv
		nrm[v+1] *= inv
		nrm[v+2] *= inv
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
