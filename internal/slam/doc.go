// Package slam implements the core of a LOAM-style LiDAR SLAM engine: a
// sequential pipeline that turns a stream of 3D point-cloud sweeps into a
// 6-DoF sensor trajectory and an incrementally maintained keypoint map.
//
// The pipeline, driven by SlamEngine.ProcessFrame, is:
//
//	frame -> keypoint extraction -> pose prediction -> ego-motion LM ->
//	undistortion -> mapping LM -> rolling-grid insertion -> trajectory append
//
// Undistortion moves each keypoint into the sweep-start frame before the
// mapping pass; keypoints are not transformed to the sweep end.
//
// Loop closure, global bundle adjustment, and multi-sensor fusion are out of
// scope; frames are processed strictly sequentially.
package slam
