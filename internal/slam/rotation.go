package slam

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// vec3 is a minimal 3-vector used internally for the fixed-size point/pose
// algebra that doesn't warrant a full gonum.org/v1/gonum/mat allocation.
// Larger, variable-size linear algebra (Jacobians, normal equations, PCA)
// goes through gonum.org/v1/gonum/mat instead; see lmsolver.go and
// matcher.go.
type vec3 struct {
	x, y, z float64
}

func (v vec3) add(o vec3) vec3      { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }
func (v vec3) sub(o vec3) vec3      { return vec3{v.x - o.x, v.y - o.y, v.z - o.z} }
func (v vec3) scale(s float64) vec3 { return vec3{v.x * s, v.y * s, v.z * s} }
func (v vec3) dot(o vec3) float64   { return v.x*o.x + v.y*o.y + v.z*o.z }
func (v vec3) norm() float64        { return math.Sqrt(v.dot(v)) }

func (v vec3) cross(o vec3) vec3 {
	return vec3{
		v.y*o.z - v.z*o.y,
		v.z*o.x - v.x*o.z,
		v.x*o.y - v.y*o.x,
	}
}

func (v vec3) normalize() vec3 {
	n := v.norm()
	if n == 0 {
		return v
	}
	return v.scale(1 / n)
}

func pointVec3(p Point) vec3 { return vec3{p.X, p.Y, p.Z} }

// zyxRotation builds R = Rz(rz) * Ry(ry) * Rx(rx), the ZYX-Euler convention
// used throughout this module (spec §3: "Euler angles... ZYX convention
// used consistently throughout").
func zyxRotation(rx, ry, rz float64) *mat.Dense {
	cx, sx := math.Cos(rx), math.Sin(rx)
	cy, sy := math.Cos(ry), math.Sin(ry)
	cz, sz := math.Cos(rz), math.Sin(rz)

	r := mat.NewDense(3, 3, []float64{
		cz*cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		sz*cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx,
		-sy, cy * sx, cy * cx,
	})
	return r
}

// zyxJacobian returns dR/drx, dR/dry, dR/drz, the analytical derivatives of
// the ZYX rotation matrix, used to build the LM Jacobian (spec §4.3).
func zyxJacobian(rx, ry, rz float64) (dRx, dRy, dRz *mat.Dense) {
	cx, sx := math.Cos(rx), math.Sin(rx)
	cy, sy := math.Cos(ry), math.Sin(ry)
	cz, sz := math.Cos(rz), math.Sin(rz)

	dRx = mat.NewDense(3, 3, []float64{
		0, cz*sy*cx + sz*sx, -cz*sy*sx + sz*cx,
		0, sz*sy*cx - cz*sx, -sz*sy*sx - cz*cx,
		0, cy * cx, -cy * sx,
	})
	dRy = mat.NewDense(3, 3, []float64{
		-cz * sy, cz * cy * sx, cz * cy * cx,
		-sz * sy, sz * cy * sx, sz * cy * cx,
		-cy, -sy * sx, -sy * cx,
	})
	dRz = mat.NewDense(3, 3, []float64{
		-sz*cy, -sz*sy*sx - cz*cx, -sz*sy*cx + cz*sx,
		cz*cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		0, 0, 0,
	})
	return
}

// rotationToZYX recovers (rx, ry, rz) from a rotation matrix built by
// zyxRotation. Implementers must guard against gimbal lock (spec §9):
// callers should ensure |ry| < pi/2 - eps, which in practice is enforced by
// the max_dist_between_two_frames sanity check limiting inter-frame motion.
func rotationToZYX(r *mat.Dense) (rx, ry, rz float64) {
	r20 := r.At(2, 0)
	r20 = math.Max(-1, math.Min(1, r20))
	ry = math.Asin(-r20)
	cy := math.Cos(ry)
	if math.Abs(cy) < 1e-9 {
		// Gimbal lock: rx and rz are coupled; pick rz=0 by convention.
		rz = 0
		rx = math.Atan2(-r.At(1, 2), r.At(1, 1))
		return rx, ry, rz
	}
	rx = math.Atan2(r.At(2, 1), r.At(2, 2))
	rz = math.Atan2(r.At(1, 0), r.At(0, 0))
	return rx, ry, rz
}

// mulMatVec3Transpose multiplies v by mᵗ, used by undistort.go to invert a
// rotation without a full matrix inverse (rotations are orthonormal, so the
// transpose is the inverse).
func mulMatVec3Transpose(m *mat.Dense, v vec3) vec3 {
	return vec3{
		m.At(0, 0)*v.x + m.At(1, 0)*v.y + m.At(2, 0)*v.z,
		m.At(0, 1)*v.x + m.At(1, 1)*v.y + m.At(2, 1)*v.z,
		m.At(0, 2)*v.x + m.At(1, 2)*v.y + m.At(2, 2)*v.z,
	}
}

func mulMatVec3(m *mat.Dense, v vec3) vec3 {
	return vec3{
		m.At(0, 0)*v.x + m.At(0, 1)*v.y + m.At(0, 2)*v.z,
		m.At(1, 0)*v.x + m.At(1, 1)*v.y + m.At(1, 2)*v.z,
		m.At(2, 0)*v.x + m.At(2, 1)*v.y + m.At(2, 2)*v.z,
	}
}

// IsOrthonormal reports whether R is orthonormal (RᵀR = I) with determinant
// +1, to the given tolerance. Used by tests to verify spec §8's pose
// invariant.
func IsOrthonormal(r *mat.Dense, tol float64) bool {
	var rt, prod mat.Dense
	rt.CloneFrom(r.T())
	prod.Mul(&rt, r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(prod.At(i, j)-want) > tol {
				return false
			}
		}
	}
	det := r.At(0, 0)*(r.At(1, 1)*r.At(2, 2)-r.At(1, 2)*r.At(2, 1)) -
		r.At(0, 1)*(r.At(1, 0)*r.At(2, 2)-r.At(1, 2)*r.At(2, 0)) +
		r.At(0, 2)*(r.At(1, 0)*r.At(2, 1)-r.At(1, 1)*r.At(2, 0))
	return math.Abs(det-1) <= tol
}

// slerpRotation linearly interpolates a small rotation by scaling its
// three ZYX Euler angles by s, approximating slerp(I, R, s) to the
// first order appropriate for the small inter-sweep rotations this
// module deals with (spec §4.4).
func slerpRotation(rx, ry, rz, s float64) *mat.Dense {
	return zyxRotation(rx*s, ry*s, rz*s)
}
