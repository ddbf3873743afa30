// Package terrain converts square elevation grids into adaptively
// simplified triangle meshes on a planetary sphere. The simplification
// is an RTIN (right-triangulated irregular network): a precomputed
// per-vertex error field drives a top-down traversal that keeps
// triangle density proportional to local reconstruction error.
package terrain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// QuantizedScale converts the int16 fixed-point tile payload into
// meters. 0.5 m per unit spans +-16 km, which covers the full range of
// terrestrial relief.
const QuantizedScale = 0.5

// GeoBounds is the geographic extent of one tile, in degrees.
type GeoBounds struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// LonAt returns the longitude at fractional grid position fx in [0,1],
// measured west to east.
func (b GeoBounds) LonAt(fx float64) float64 {
	return b.LonMin + fx*(b.LonMax-b.LonMin)
}

// LatAt returns the latitude at fractional grid position fy in [0,1].
// Row 0 of a grid is the northern edge, so fy grows southward.
func (b GeoBounds) LatAt(fy float64) float64 {
	return b.LatMax - fy*(b.LatMax-b.LatMin)
}

// Center returns the midpoint of the bounds.
func (b GeoBounds) Center() (lon, lat float64) {
	return (b.LonMin + b.LonMax) / 2, (b.LatMin + b.LatMax) / 2
}

// Grid is a square elevation sample grid. Size is the number of
// samples per side and Size-1 must be a power of two. Samples are
// row-major, in meters, with row 0 at the tile's northern edge.
// A Grid is immutable once decoded.
type Grid struct {
	Size    int
	Samples []float32
	Bounds  GeoBounds
}

// At returns the elevation sample at grid coordinates (x, y).
func (g *Grid) At(x, y int) float32 {
	return g.Samples[y*g.Size+x]
}

// DecodeGrid interprets a raw tile payload as a size x size elevation
// grid. The payload is self-describing by length: 2 bytes per sample is
// int16 little-endian scaled by QuantizedScale, 4 bytes per sample is
// float32 little-endian meters. Any other length is a format error and
// nothing is returned.
func DecodeGrid(raw []byte, size int, bounds GeoBounds) (*Grid, error) {
	if size < 2 {
		return nil, fmt.Errorf("grid size %d too small", size)
	}
	n := size * size
	samples := make([]float32, n)

	switch len(raw) {
	case n * 2:
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			samples[i] = float32(v) * QuantizedScale
		}
	case n * 4:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
	default:
		return nil, fmt.Errorf("tile payload is %d bytes, want %d (quantized) or %d (float) for resolution %d",
			len(raw), n*2, n*4, size)
	}

	return &Grid{Size: size, Samples: samples, Bounds: bounds}, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
