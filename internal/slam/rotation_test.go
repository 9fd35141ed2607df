package slam

import (
	"math"
	"testing"
)

func TestZYXRotationIsOrthonormal(t *testing.T) {
	cases := []struct{ rx, ry, rz float64 }{
		{0, 0, 0},
		{0.1, 0.2, 0.3},
		{-0.4, 0.5, -0.6},
		{1.0, -0.7, 0.9},
	}
	for _, c := range cases {
		r := zyxRotation(c.rx, c.ry, c.rz)
		if !IsOrthonormal(r, 1e-9) {
			t.Errorf("zyxRotation(%v,%v,%v) not orthonormal", c.rx, c.ry, c.rz)
		}
	}
}

func TestRotationToZYXRoundTrip(t *testing.T) {
	cases := []struct{ rx, ry, rz float64 }{
		{0, 0, 0},
		{0.1, 0.2, 0.3},
		{-0.4, 0.5, -0.6},
		{1.0, -0.7, 0.9},
		{0.05, 1.2, -1.4},
	}
	for _, c := range cases {
		r := zyxRotation(c.rx, c.ry, c.rz)
		rx, ry, rz := rotationToZYX(r)
		got := zyxRotation(rx, ry, rz)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if math.Abs(got.At(i, j)-r.At(i, j)) > 1e-9 {
					t.Fatalf("round trip mismatch at (%d,%d): want %f got %f (angles %v -> %v,%v,%v)",
						i, j, r.At(i, j), got.At(i, j), c, rx, ry, rz)
				}
			}
		}
	}
}

func TestRotationToZYXGimbalLock(t *testing.T) {
	r := zyxRotation(0.3, math.Pi/2, -0.2)
	rx, ry, rz := rotationToZYX(r)
	if rz != 0 {
		t.Errorf("gimbal lock branch expected rz=0, got %f", rz)
	}
	if math.Abs(ry-math.Pi/2) > 1e-6 {
		t.Errorf("gimbal lock ry = %f, want pi/2", ry)
	}
	got := zyxRotation(rx, ry, rz)
	if !IsOrthonormal(got, 1e-9) {
		t.Errorf("gimbal-lock-recovered rotation not orthonormal")
	}
}

func TestZYXJacobianMatchesFiniteDifference(t *testing.T) {
	rx, ry, rz := 0.2, -0.3, 0.4
	h := 1e-6
	dRx, dRy, dRz := zyxJacobian(rx, ry, rz)

	check := func(name string, analytic *mat3, plus, minus func() *mat3) {
		fd := subScale(plus(), minus(), 1/(2*h))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if math.Abs(analytic.At(i, j)-fd.At(i, j)) > 1e-4 {
					t.Errorf("%s jacobian mismatch at (%d,%d): analytic %f, finite-diff %f",
						name, i, j, analytic.At(i, j), fd.At(i, j))
				}
			}
		}
	}

	check("drx", toMat3(dRx),
		func() *mat3 { return toMat3(zyxRotation(rx+h, ry, rz)) },
		func() *mat3 { return toMat3(zyxRotation(rx-h, ry, rz)) })
	check("dry", toMat3(dRy),
		func() *mat3 { return toMat3(zyxRotation(rx, ry+h, rz)) },
		func() *mat3 { return toMat3(zyxRotation(rx, ry-h, rz)) })
	check("drz", toMat3(dRz),
		func() *mat3 { return toMat3(zyxRotation(rx, ry, rz+h)) },
		func() *mat3 { return toMat3(zyxRotation(rx, ry, rz-h)) })
}

// mat3 is a tiny local stand-in so this file doesn't need to import gonum
// just to subtract two 3x3 matrices element-wise for the finite-difference
// check above.
type mat3 [3][3]float64

func (m *mat3) At(i, j int) float64 { return m[i][j] }

func toMat3(r interface{ At(int, int) float64 }) *mat3 {
	var m mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = r.At(i, j)
		}
	}
	return &m
}

func subScale(a, b *mat3, s float64) *mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = (a[i][j] - b[i][j]) * s
		}
	}
	return &out
}

func TestMulMatVec3TransposeIsInverseOfMulMatVec3(t *testing.T) {
	r := zyxRotation(0.3, -0.2, 0.5)
	v := vec3{1, 2, 3}
	rv := mulMatVec3(r, v)
	back := mulMatVec3Transpose(r, rv)
	if back.sub(v).norm() > 1e-9 {
		t.Errorf("mulMatVec3Transpose did not invert mulMatVec3: got %v, want %v", back, v)
	}
}

func TestVec3Helpers(t *testing.T) {
	a := vec3{1, 0, 0}
	b := vec3{0, 1, 0}
	if got := a.cross(b); got != (vec3{0, 0, 1}) {
		t.Errorf("cross product wrong: got %v", got)
	}
	if got := a.dot(b); got != 0 {
		t.Errorf("dot of orthogonal unit vectors should be 0, got %f", got)
	}
	n := vec3{3, 4, 0}.normalize()
	if math.Abs(n.norm()-1) > 1e-9 {
		t.Errorf("normalize did not produce a unit vector: norm=%f", n.norm())
	}
}
