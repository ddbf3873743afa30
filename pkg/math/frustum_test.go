package math

import (
	gomath "math"
	"testing"
)

func testViewProj() Mat4 {
	proj := Perspective(float32(gomath.Pi/3), 16.0/9.0, 0.1, 100)
	view := LookAt(Vec3{0, 0, 10}, Vec3{}, Vec3{Y: 1})
	return proj.Mul(view)
}

func TestFrustumContainsLookTarget(t *testing.T) {
	f := FrustumFromMatrix(testViewProj())

	if !f.IntersectsSphere(Vec3{}, 1) {
		t.Error("sphere at the look target should intersect the frustum")
	}
	if !f.IntersectsSphere(Vec3{0, 0, 5}, 0.1) {
		t.Error("point between eye and target should intersect the frustum")
	}
}

func TestFrustumRejectsOutside(t *testing.T) {
	f := FrustumFromMatrix(testViewProj())

	cases := []struct {
		name   string
		center Vec3
		radius float32
	}{
		{"behind camera", Vec3{0, 0, 20}, 1},
		{"beyond far plane", Vec3{0, 0, -200}, 1},
		{"far left", Vec3{-100, 0, 5}, 1},
		{"far above", Vec3{0, 100, 5}, 1},
	}
	for _, c := range cases {
		if f.IntersectsSphere(c.center, c.radius) {
			t.Errorf("%s: sphere at %+v should be culled", c.name, c.center)
		}
	}
}

func TestFrustumSphereStraddlesPlane(t *testing.T) {
	f := FrustumFromMatrix(testViewProj())

	// Center outside the left plane but radius large enough to reach in.
	if !f.IntersectsSphere(Vec3{-20, 0, 0}, 25) {
		t.Error("large sphere straddling a plane should not be culled")
	}
}

func TestTransformPointPerspectiveDivide(t *testing.T) {
	vp := testViewProj()

	// The look target projects to the center of the screen.
	p := vp.TransformPoint(Vec3{})
	if absf(p.X) > 1e-5 || absf(p.Y) > 1e-5 {
		t.Errorf("look target should project to screen center, got %+v", p)
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
