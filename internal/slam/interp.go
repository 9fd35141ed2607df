package slam

// PoseInterpolator supplies an externally measured velocity hint for
// Config.MotionModel == 1 ("+ external velocity hint" — e.g. wheel
// odometry or IMU integration run alongside the LiDAR pipeline). When set,
// SlamEngine scales the hint by the time since the previous frame and uses
// it only as the initial guess of the ego-motion solve; the hint is not fed
// into the Kalman filter.
type PoseInterpolator interface {
	// VelocityHint returns the estimated 6-DoF velocity (rad/s for the
	// rotational components, m/s for translation) at time t, or ok=false
	// if no hint covers that time.
	VelocityHint(t float64) (Pose6, bool)
}
