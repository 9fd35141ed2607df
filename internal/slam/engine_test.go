package slam

import (
	"errors"
	"math"
	"testing"
)

func testEngineConfig() *Config {
	cfg := DefaultConfig()
	cfg.Keypoint = testKeypointConfig()
	cfg.RollingGrid.GridNbVoxel = [3]int{50, 50, 50}
	return cfg
}

func TestNewSlamEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lambda0 = -1
	if _, err := NewSlamEngine(cfg); err == nil {
		t.Errorf("NewSlamEngine with an invalid config should return an error")
	}
}

func TestNewSlamEngineInitialState(t *testing.T) {
	e, err := NewSlamEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSlamEngine returned error: %v", err)
	}
	if !approxPose(e.WorldPose(), IdentityPose6(), 1e-12) {
		t.Errorf("WorldPose() before any frame = %+v, want identity", e.WorldPose())
	}
	if e.Trajectory().Len() != 0 {
		t.Errorf("Trajectory().Len() before any frame = %d, want 0", e.Trajectory().Len())
	}
}

func TestProcessFrameRequiresCalibration(t *testing.T) {
	e, err := NewSlamEngine(testEngineConfig())
	if err != nil {
		t.Fatalf("NewSlamEngine returned error: %v", err)
	}
	_, err = e.ProcessFrame(buildTestFrame(), 0)
	if !errors.Is(err, ErrCalibrationMissing) {
		t.Errorf("ProcessFrame before SetSensorCalibration should return ErrCalibrationMissing, got %v", err)
	}
}

func mustCalibratedEngine(t *testing.T) *SlamEngine {
	e, err := NewSlamEngine(testEngineConfig())
	if err != nil {
		t.Fatalf("NewSlamEngine returned error: %v", err)
	}
	mapping := []uint16{0, 1}
	if err := e.SetSensorCalibration(SensorCalibration{LaserIDMapping: mapping}); err != nil {
		t.Fatalf("SetSensorCalibration returned error: %v", err)
	}
	return e
}

func TestProcessFrameFirstFrameHasNoPreviousKeypoints(t *testing.T) {
	e := mustCalibratedEngine(t)
	pose, err := e.ProcessFrame(buildTestFrame(), 0)
	if err != nil {
		t.Fatalf("ProcessFrame returned error on the first frame: %v", err)
	}
	v := pose.Vector()
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("pose component %d is non-finite: %v", i, pose)
		}
	}
	if e.Trajectory().Len() != 1 {
		t.Errorf("Trajectory().Len() after one frame = %d, want 1", e.Trajectory().Len())
	}
}

func TestProcessFrameSequenceAccumulatesTrajectory(t *testing.T) {
	e := mustCalibratedEngine(t)
	frames := []*Frame{buildTestFrame(), buildTestFrame(), buildTestFrame()}
	for i, f := range frames {
		pose, err := e.ProcessFrame(f, float64(i)*0.1)
		if err != nil {
			t.Fatalf("ProcessFrame(frame %d) returned error: %v", i, err)
		}
		v := pose.Vector()
		for j, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Fatalf("frame %d: pose component %d is non-finite: %v", i, j, pose)
			}
		}
	}
	if e.Trajectory().Len() != len(frames) {
		t.Errorf("Trajectory().Len() = %d, want %d", e.Trajectory().Len(), len(frames))
	}
}

func TestSlamEngineReset(t *testing.T) {
	e := mustCalibratedEngine(t)
	if _, err := e.ProcessFrame(buildTestFrame(), 0); err != nil {
		t.Fatalf("ProcessFrame returned error: %v", err)
	}
	e.Reset()
	if !approxPose(e.WorldPose(), IdentityPose6(), 1e-12) {
		t.Errorf("WorldPose() after Reset = %+v, want identity", e.WorldPose())
	}
	if e.Trajectory().Len() != 0 {
		t.Errorf("Trajectory().Len() after Reset = %d, want 0", e.Trajectory().Len())
	}
}

type recordingObserver struct {
	keypointCalls, egoCalls, mappingCalls, completeCalls int
}

func (r *recordingObserver) OnKeypoints(int, *Keypoints)        { r.keypointCalls++ }
func (r *recordingObserver) OnEgoMotion(int, Pose6, error)      { r.egoCalls++ }
func (r *recordingObserver) OnMapping(int, Pose6, error)        { r.mappingCalls++ }
func (r *recordingObserver) OnFrameComplete(int, Pose6)         { r.completeCalls++ }

func TestSlamEngineObserverReceivesCallbacks(t *testing.T) {
	e := mustCalibratedEngine(t)
	obs := &recordingObserver{}
	e.SetObserver(obs)

	if _, err := e.ProcessFrame(buildTestFrame(), 0); err != nil {
		t.Fatalf("ProcessFrame returned error: %v", err)
	}
	if obs.keypointCalls != 1 {
		t.Errorf("OnKeypoints called %d times, want 1", obs.keypointCalls)
	}
	if obs.mappingCalls != 1 {
		t.Errorf("OnMapping called %d times, want 1", obs.mappingCalls)
	}
	if obs.completeCalls != 1 {
		t.Errorf("OnFrameComplete called %d times, want 1", obs.completeCalls)
	}
	// No previous-frame keypoints exist yet on the first frame, so
	// ego-motion is never attempted.
	if obs.egoCalls != 0 {
		t.Errorf("OnEgoMotion called %d times on the first frame, want 0", obs.egoCalls)
	}

	if _, err := e.ProcessFrame(buildTestFrame(), 0.1); err != nil {
		t.Fatalf("ProcessFrame returned error: %v", err)
	}
	if obs.egoCalls != 1 {
		t.Errorf("OnEgoMotion called %d times on the second frame, want 1", obs.egoCalls)
	}
}

func TestSlamEngineSetObserverNilInstallsNoop(t *testing.T) {
	e := mustCalibratedEngine(t)
	e.SetObserver(nil)
	if _, err := e.ProcessFrame(buildTestFrame(), 0); err != nil {
		t.Fatalf("ProcessFrame with a nil observer returned error: %v", err)
	}
}
