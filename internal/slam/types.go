package slam

import "gonum.org/v1/gonum/mat"

//
// 0) Raw point / frame data model
//

// Point is a single LiDAR return in sensor-frame Cartesian coordinates.
type Point struct {
	X, Y, Z     float64
	Intensity   float64
	ScanLineID  uint16  // physical scan line, after laser_id_mapping
	TimeOffset  float64 // fractional position within the sweep, in [0,1]
}

// Vec3 returns the point's position as a plain vector.
func (p Point) Vec3() vec3 {
	return vec3{p.X, p.Y, p.Z}
}

// Range returns the Euclidean distance from the sensor origin.
func (p Point) Range() float64 {
	return p.Vec3().norm()
}

// Frame is one full sweep: an ordered sequence of points, conceptually
// partitioned by ScanLineID into per-line sub-sequences sorted by
// acquisition order (azimuth).
type Frame struct {
	Points []Point
}

// ScanLines partitions the frame's points by ScanLineID, preserving
// within-line acquisition order. The returned map's slices alias Points'
// backing storage is not guaranteed; callers must not assume otherwise.
func (f *Frame) ScanLines() map[uint16][]int {
	lines := make(map[uint16][]int)
	for i, p := range f.Points {
		lines[p.ScanLineID] = append(lines[p.ScanLineID], i)
	}
	return lines
}

//
// 1) Keypoint labels
//

// KeypointLabel classifies a point during extraction.
type KeypointLabel int

const (
	LabelUnlabeled KeypointLabel = iota
	LabelEdge
	LabelPlanar
	LabelBlob
	LabelInvalid
)

func (l KeypointLabel) String() string {
	switch l {
	case LabelUnlabeled:
		return "unlabeled"
	case LabelEdge:
		return "edge"
	case LabelPlanar:
		return "planar"
	case LabelBlob:
		return "blob"
	case LabelInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Keypoints holds the classified output of KeypointExtractor.Extract for a
// single frame.
type Keypoints struct {
	Edges   []Point
	Planars []Point
	Blobs   []Point

	// Labels mirrors Frame.Points 1:1, for diagnostic/observer use.
	Labels []KeypointLabel
	// Curvature and DepthGap mirror Frame.Points 1:1, for diagnostic use.
	Curvature []float64
	DepthGap  []float64
}

//
// 2) Pose
//

// Pose6 is a 6-vector rigid transform: (rx,ry,rz) ZYX Euler angles and
// (tx,ty,tz) translation.
type Pose6 struct {
	RX, RY, RZ float64
	TX, TY, TZ float64
}

// IdentityPose6 returns the zero transform.
func IdentityPose6() Pose6 {
	return Pose6{}
}

// Vector returns the pose as a 6-slice (rx,ry,rz,tx,ty,tz), the layout the
// LM solver optimizes over.
func (p Pose6) Vector() [6]float64 {
	return [6]float64{p.RX, p.RY, p.RZ, p.TX, p.TY, p.TZ}
}

// FromVector builds a Pose6 from a 6-slice in (rx,ry,rz,tx,ty,tz) order.
func FromVector(v [6]float64) Pose6 {
	return Pose6{RX: v[0], RY: v[1], RZ: v[2], TX: v[3], TY: v[4], TZ: v[5]}
}

// Translation returns the translation component as a vector.
func (p Pose6) Translation() vec3 {
	return vec3{p.TX, p.TY, p.TZ}
}

// RotationMatrix returns the 3x3 ZYX-Euler rotation matrix R(rx,ry,rz).
func (p Pose6) RotationMatrix() *mat.Dense {
	return zyxRotation(p.RX, p.RY, p.RZ)
}

// Matrix4 returns the pose as a 4x4 row-major rigid transform, matching the
// convention used throughout the pack (see transform.go's ApplyPose).
func (p Pose6) Matrix4() [16]float64 {
	r := p.RotationMatrix()
	var m [16]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i*4+j] = r.At(i, j)
		}
	}
	m[3] = p.TX
	m[7] = p.TY
	m[11] = p.TZ
	m[15] = 1
	return m
}

// Transform applies the pose's rigid transform to a point: R*X + t.
func (p Pose6) Transform(x vec3) vec3 {
	r := p.RotationMatrix()
	rx := mulMatVec3(r, x)
	return rx.add(p.Translation())
}

// Compose returns the pose equivalent to applying `p` first and then `q`:
// q ∘ p, i.e. the transform mapping points from p's source frame into q's
// destination frame.
func Compose(p, q Pose6) Pose6 {
	rp := p.RotationMatrix()
	rq := q.RotationMatrix()
	var rc mat.Dense
	rc.Mul(rq, rp)
	rx, ry, rz := rotationToZYX(&rc)
	tc := mulMatVec3(rq, p.Translation()).add(q.Translation())
	return Pose6{RX: rx, RY: ry, RZ: rz, TX: tc.x, TY: tc.y, TZ: tc.z}
}

// Inverse returns the pose whose transform undoes p.
func (p Pose6) Inverse() Pose6 {
	r := p.RotationMatrix()
	var rt mat.Dense
	rt.CloneFrom(r.T())
	rx, ry, rz := rotationToZYX(&rt)
	negT := mulMatVec3(&rt, p.Translation()).scale(-1)
	return Pose6{RX: rx, RY: ry, RZ: rz, TX: negT.x, TY: negT.y, TZ: negT.z}
}
