package slam

import (
	"math"
	"testing"
)

func TestKalmanFilter12ResetState(t *testing.T) {
	pose := Pose6{RX: 0.1, TX: 1, TY: 2, TZ: 3}
	k := NewKalmanFilter12(pose, 10, 5)
	if !approxPose(k.State(), pose, 1e-12) {
		t.Errorf("State() after construction = %+v, want %+v", k.State(), pose)
	}
	zero := Pose6{}
	if !approxPose(k.Velocity(), zero, 1e-12) {
		t.Errorf("Velocity() after construction = %+v, want zero", k.Velocity())
	}
}

func TestKalmanFilter12PredictWithZeroVelocityKeepsPose(t *testing.T) {
	k := NewKalmanFilter12(IdentityPose6(), 10, 5)
	// A freshly constructed filter has zero velocity, so Predict's
	// constant-velocity model must leave the pose component unchanged.
	k.Predict(1.0)
	if !approxPose(k.State(), IdentityPose6(), 1e-9) {
		t.Errorf("Predict with zero velocity should leave pose unchanged, got %+v", k.State())
	}
}

func TestKalmanFilter12CorrectMovesTowardMeasurement(t *testing.T) {
	k := NewKalmanFilter12(IdentityPose6(), 10, 5)
	measured := Pose6{TX: 5, TY: 0, TZ: 0}
	noise := [6]float64{1e-6, 1e-6, 1e-6, 1e-6, 1e-6, 1e-6}
	k.Correct(measured, noise)
	got := k.State()
	if math.Abs(got.TX-5) > 1e-2 {
		t.Errorf("Correct with tiny measurement noise should pull state close to measurement, got TX=%f", got.TX)
	}
}

func TestKalmanFilter12ResetClearsVelocity(t *testing.T) {
	k := NewKalmanFilter12(IdentityPose6(), 10, 5)
	k.Correct(Pose6{TX: 5}, [6]float64{1e-6, 1e-6, 1e-6, 1e-6, 1e-6, 1e-6})
	k.Reset(Pose6{TX: 9})
	if !approxPose(k.State(), Pose6{TX: 9}, 1e-9) {
		t.Errorf("State() after Reset = %+v, want TX=9", k.State())
	}
	if !approxPose(k.Velocity(), Pose6{}, 1e-9) {
		t.Errorf("Velocity() after Reset = %+v, want zero", k.Velocity())
	}
}

func TestKalmanFilter12GetNbrMeasureCountsCorrectsAndResets(t *testing.T) {
	k := NewKalmanFilter12(IdentityPose6(), 10, 5)
	noise := [6]float64{1e-3, 1e-3, 1e-3, 1e-3, 1e-3, 1e-3}
	if k.GetNbrMeasure() != 0 {
		t.Fatalf("GetNbrMeasure() on a fresh filter = %d, want 0", k.GetNbrMeasure())
	}
	k.Correct(Pose6{TX: 1}, noise)
	k.Correct(Pose6{TX: 2}, noise)
	if got := k.GetNbrMeasure(); got != 2 {
		t.Errorf("GetNbrMeasure() after 2 corrects = %d, want 2", got)
	}
	k.Reset(IdentityPose6())
	if got := k.GetNbrMeasure(); got != 0 {
		t.Errorf("GetNbrMeasure() after Reset = %d, want 0", got)
	}
}
