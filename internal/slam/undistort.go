package slam

// MotionUndistorter corrects per-point motion distortion within a sweep
// (spec §4.4). delta is the rigid motion of the sensor over the sweep,
// mapping sweep-start-frame coordinates to sweep-end-frame coordinates;
// each point, sampled at fractional sweep position TimeOffset, is
// transformed using the motion interpolated up to that fraction.
type MotionUndistorter struct{}

// NewMotionUndistorter constructs an undistorter. It carries no state:
// every call is parameterized entirely by the delta pose and point given.
func NewMotionUndistorter() *MotionUndistorter {
	return &MotionUndistorter{}
}

// TransformToStart maps p into the sweep-start sensor frame, removing the
// fraction of delta that elapsed before p was acquired.
func (u *MotionUndistorter) TransformToStart(p Point, delta Pose6) Point {
	s := clamp01(p.TimeOffset)
	r := slerpRotation(delta.RX, delta.RY, delta.RZ, s)
	t := delta.Translation().scale(s)
	v := mulMatVec3Transpose(r, p.Vec3().sub(t))
	return withXYZ(p, v)
}

// TransformToEnd maps p into the sweep-end sensor frame: first undistort
// to the start frame, then apply the full forward motion.
//
// TransformToEnd is not TransformToStart's inverse: calling
// TransformToStart on TransformToEnd's output (at the same TimeOffset,
// which both read from the point) does not reproduce p except when delta
// is the identity. At TimeOffset 0, TransformToStart is a no-op, so the
// composition reduces to TransformToEnd's own output, delta.Transform(p);
// at TimeOffset 1, TransformToEnd is a no-op, so it reduces to
// TransformToStart's own output, delta.Inverse().Transform(p). Neither is
// p. Each function independently undistorts a raw point into a fixed
// frame; they are not meant to be composed.
func (u *MotionUndistorter) TransformToEnd(p Point, delta Pose6) Point {
	start := u.TransformToStart(p, delta)
	return withXYZ(start, delta.Transform(start.Vec3()))
}

// TransformToWorld maps a start-frame point into the world frame using the
// accumulated world pose at sweep start.
func (u *MotionUndistorter) TransformToWorld(p Point, worldAtStart Pose6) Point {
	return withXYZ(p, worldAtStart.Transform(p.Vec3()))
}

func withXYZ(p Point, v vec3) Point {
	p.X, p.Y, p.Z = v.x, v.y, v.z
	return p
}

func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
