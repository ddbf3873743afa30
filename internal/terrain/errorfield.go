package terrain

import "fmt"

// Hierarchy is the canonical right-triangle subdivision of a square
// grid of a given size. Two root triangles split the grid along its
// diagonal; every further triangle splits by connecting its right-angle
// apex to the midpoint of its hypotenuse. The hierarchy is a pure
// function of the grid size, so one instance is shared by every tile at
// the same resolution. It also owns the scratch buffers reused across
// extractions; a Hierarchy must not be used from multiple goroutines.
type Hierarchy struct {
	GridSize int
	TileSize int

	numTriangles int
	numParents   int

	// coords holds the grid coordinates of the two hypotenuse endpoints
	// of every triangle, 4 entries per triangle (ax, ay, bx, by). The
	// apex and the hypotenuse midpoint are derived arithmetically, so no
	// per-node tree is ever materialized.
	coords []uint16

	// extraction scratch, reused to avoid per-rebuild allocation
	indices []uint32
	stack   []triangle
}

type triangle struct {
	ax, ay, bx, by, cx, cy int32
}

// NewHierarchy builds the triangle hierarchy for gridSize samples per
// side. gridSize-1 must be a power of two.
func NewHierarchy(gridSize int) (*Hierarchy, error) {
	// gridSize 2 would mean a single unit cell with no midpoints to
	// carry errors, so the smallest usable hierarchy is 3.
	tileSize := gridSize - 1
	if gridSize < 3 || !isPowerOfTwo(tileSize) {
		return nil, fmt.Errorf("grid size %d is not 2^n+1 with n >= 1", gridSize)
	}

	numTriangles := tileSize*tileSize*2 - 2
	numParents := numTriangles - tileSize*tileSize
	h := &Hierarchy{
		GridSize:     gridSize,
		TileSize:     tileSize,
		numTriangles: numTriangles,
		numParents:   numParents,
		coords:       make([]uint16, numTriangles*4),
		indices:      make([]uint32, gridSize*gridSize),
	}

	// Walk from each triangle's label down to its position in the grid.
	// Labels assign 2 and 3 to the root triangles, and 2i, 2i+1 to the
	// children of i, so the bits of a label encode the descent path.
	for i := 0; i < numTriangles; i++ {
		id := i + 2
		var ax, ay, bx, by, cx, cy int32
		if id&1 != 0 {
			// bottom-left root half
			bx, by, cx = int32(tileSize), int32(tileSize), int32(tileSize)
		} else {
			// top-right root half
			ax, ay, cy = int32(tileSize), int32(tileSize), int32(tileSize)
		}
		for id >>= 1; id > 1; id >>= 1 {
			mx := (ax + bx) >> 1
			my := (ay + by) >> 1
			if id&1 != 0 {
				// descend into the left child
				bx, by = ax, ay
				ax, ay = cx, cy
			} else {
				// descend into the right child
				ax, ay = bx, by
				bx, by = cx, cy
			}
			cx, cy = mx, my
		}
		k := i * 4
		h.coords[k+0] = uint16(ax)
		h.coords[k+1] = uint16(ay)
		h.coords[k+2] = uint16(bx)
		h.coords[k+3] = uint16(by)
	}

	return h, nil
}

// NumTriangles returns the total number of triangles in the hierarchy.
func (h *Hierarchy) NumTriangles() int { return h.numTriangles }

// NumLeafTriangles returns the number of unit leaf triangles.
func (h *Hierarchy) NumLeafTriangles() int { return h.numTriangles - h.numParents }

// ErrorField stores, for every grid vertex, the worst-case vertical
// deviation introduced anywhere in the mesh by omitting that vertex.
// It is a pure function of one grid and is reused across rebuilds at
// different tolerances until the grid itself changes.
type ErrorField struct {
	hier   *Hierarchy
	grid   *Grid
	Errors []float32
}

// ComputeErrors builds the complete hierarchical error field for a
// grid. The grid size must match the hierarchy.
func (h *Hierarchy) ComputeErrors(g *Grid) (*ErrorField, error) {
	if g.Size != h.GridSize {
		return nil, fmt.Errorf("grid size %d does not match hierarchy size %d", g.Size, h.GridSize)
	}

	size := h.GridSize
	errors := make([]float32, size*size)

	// Finest to coarsest, so child midpoint errors are always computed
	// before the parent that folds them in. A parent's stored error is
	// therefore >= either child's, which is what lets extraction stop
	// descending as soon as one midpoint passes the tolerance.
	for i := h.numTriangles - 1; i >= 0; i-- {
		k := i * 4
		ax, ay := int32(h.coords[k+0]), int32(h.coords[k+1])
		bx, by := int32(h.coords[k+2]), int32(h.coords[k+3])
		mx := (ax + bx) >> 1
		my := (ay + by) >> 1
		cx := mx + my - ay
		cy := my + ax - mx

		interpolated := (g.Samples[ay*int32(size)+ax] + g.Samples[by*int32(size)+bx]) / 2
		middle := my*int32(size) + mx
		err := interpolated - g.Samples[middle]
		if err < 0 {
			err = -err
		}
		if err > errors[middle] {
			errors[middle] = err
		}

		if i < h.numParents {
			left := ((ay+cy)>>1)*int32(size) + ((ax+cx)>>1)
			right := ((by+cy)>>1)*int32(size) + ((bx+cx)>>1)
			if errors[left] > errors[middle] {
				errors[middle] = errors[left]
			}
			if errors[right] > errors[middle] {
				errors[middle] = errors[right]
			}
		}
	}

	return &ErrorField{hier: h, grid: g, Errors: errors}, nil
}

// Grid returns the grid this field was computed from.
func (f *ErrorField) Grid() *Grid { return f.grid }
