package slam

import "errors"

// Error kinds per spec §7. Frame-level errors degrade gracefully (the
// engine still emits a pose); configuration errors are fatal; correspondence
// errors are filtered silently and never surface as an error value.

var (
	// ErrNotEnoughKeypoints indicates fewer matches than the LM degrees of
	// freedom (6) were found; the caller-visible effect is a skipped
	// mapping or ego-motion step.
	ErrNotEnoughKeypoints = errors.New("slam: not enough keypoint correspondences")

	// ErrLMDiverged indicates the LM cost did not decrease for MaxIter
	// consecutive rejected steps. LMSolver.Solve still returns the best
	// theta seen, together with this error so callers can distinguish a
	// non-convergent-but-usable result from a hard failure.
	ErrLMDiverged = errors.New("slam: levenberg-marquardt did not converge")

	// ErrExcessiveMotion indicates the recovered translation exceeded
	// Config.MaxDistBetweenTwoFrames; the ego-motion result is discarded
	// and the engine falls back to its motion-model prediction.
	ErrExcessiveMotion = errors.New("slam: excessive inter-frame motion")

	// ErrCalibrationMissing indicates ProcessFrame was invoked before
	// SetSensorCalibration. This is a hard, caller-visible error.
	ErrCalibrationMissing = errors.New("slam: sensor calibration not set")

	// ErrDegenerateGeometry names the §7 correspondence-error kind: a
	// matched neighborhood's covariance rank-deficient for the requested
	// primitive (line/plane). FeatureMatcher never returns it — the
	// individual correspondence is dropped with a silent continue instead,
	// per §7's "correspondence errors ... never surface as an error value."
	// Kept exported as the named sentinel for that error kind, for callers
	// that want to refer to it in their own diagnostics.
	ErrDegenerateGeometry = errors.New("slam: degenerate correspondence geometry")
)
