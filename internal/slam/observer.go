package slam

// Observer receives diagnostic callbacks after each stage of
// SlamEngine.ProcessFrame. It is the in-process substitute for a
// display-mode side channel: implementations must not block and must not
// modify the Keypoints they're handed, since the engine keeps using them
// after the call (they become the previous frame's keypoints).
type Observer interface {
	OnKeypoints(frameIdx int, kp *Keypoints)
	OnEgoMotion(frameIdx int, delta Pose6, err error)
	OnMapping(frameIdx int, worldPose Pose6, err error)
	OnFrameComplete(frameIdx int, worldPose Pose6)
}

// NoopObserver implements Observer with no-op methods; it is the default
// when no observer is set.
type NoopObserver struct{}

func (NoopObserver) OnKeypoints(int, *Keypoints)   {}
func (NoopObserver) OnEgoMotion(int, Pose6, error) {}
func (NoopObserver) OnMapping(int, Pose6, error)   {}
func (NoopObserver) OnFrameComplete(int, Pose6)    {}
