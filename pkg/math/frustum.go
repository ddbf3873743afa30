package math

import "math"

// Plane is a plane in Hessian normal form: Nx*x + Ny*y + Nz*z + D = 0.
// The normal points toward the inside of the frustum.
type Plane struct {
	Nx, Ny, Nz, D float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means the point lies on the side the normal faces.
func (p Plane) DistanceTo(v Vec3) float32 {
	return p.Nx*v.X + p.Ny*v.Y + p.Nz*v.Z + p.D
}

// Frustum is the six clip planes of a view volume, in the order
// left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts the clip planes from a combined
// projection*view matrix (Gribb-Hartmann). Planes are normalized so
// DistanceTo yields world-space distances.
func FrustumFromMatrix(m Mat4) Frustum {
	// row(i) of the column-major matrix is m[i], m[4+i], m[8+i], m[12+i]
	row := func(i int) [4]float32 {
		return [4]float32{m[i], m[4+i], m[8+i], m[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6][4]float32{
		{r3[0] + r0[0], r3[1] + r0[1], r3[2] + r0[2], r3[3] + r0[3]}, // left
		{r3[0] - r0[0], r3[1] - r0[1], r3[2] - r0[2], r3[3] - r0[3]}, // right
		{r3[0] + r1[0], r3[1] + r1[1], r3[2] + r1[2], r3[3] + r1[3]}, // bottom
		{r3[0] - r1[0], r3[1] - r1[1], r3[2] - r1[2], r3[3] - r1[3]}, // top
		{r3[0] + r2[0], r3[1] + r2[1], r3[2] + r2[2], r3[3] + r2[3]}, // near
		{r3[0] - r2[0], r3[1] - r2[1], r3[2] - r2[2], r3[3] - r2[3]}, // far
	}

	var f Frustum
	for i, p := range planes {
		l := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if l == 0 {
			l = 1
		}
		f[i] = Plane{p[0] / l, p[1] / l, p[2] / l, p[3] / l}
	}
	return f
}

// IntersectsSphere reports whether a sphere touches the frustum volume.
func (f *Frustum) IntersectsSphere(center Vec3, radius float32) bool {
	for i := range f {
		if f[i].DistanceTo(center) < -radius {
			return false
		}
	}
	return true
}
