package slam

import (
	"errors"
	"math"
	"testing"
)

func solverTestConfig() MatchConfig {
	return MatchConfig{
		MaxIter:              20,
		ICPFrequency:         1,
		LineNbNeighbors:      10,
		MinLineNeighbors:     3,
		LineDistanceFactor:   3.0,
		PlaneNbNeighbors:     6,
		PlaneDistanceFactor1: 2.0,
		PlaneDistanceFactor2: 8.0,
		MaxLineDistance:      1.0,
		MaxPlaneDistance:     0.8,
	}
}

func TestLMSolverNotEnoughCorrespondences(t *testing.T) {
	s := NewLMSolver(solverTestConfig())
	matchFn := func(Pose6) []Correspondence {
		return []Correspondence{
			{Kind: CorrPlane, Query: vec3{0, 0, 1}, Anchor: vec3{}, Normal: vec3{0, 0, 1}, Weight: 1},
		}
	}
	_, err := s.Solve(IdentityPose6(), matchFn, 1e-2, 10)
	if !errors.Is(err, ErrNotEnoughKeypoints) {
		t.Errorf("Solve with 1 correspondence should return ErrNotEnoughKeypoints, got %v", err)
	}
}

func TestLMSolverConvergesToExactFit(t *testing.T) {
	s := NewLMSolver(solverTestConfig())
	// Six independent point-to-plane constraints, each already satisfied
	// exactly at the identity pose (Anchor == Query), spread out enough in
	// position to constrain all three rotational degrees of freedom too.
	corrs := []Correspondence{
		{Kind: CorrPlane, Query: vec3{1, 0, 0}, Anchor: vec3{1, 0, 0}, Normal: vec3{1, 0, 0}, Weight: 1},
		{Kind: CorrPlane, Query: vec3{-1, 2, 0}, Anchor: vec3{-1, 2, 0}, Normal: vec3{1, 0, 0}, Weight: 1},
		{Kind: CorrPlane, Query: vec3{0, 1, 0}, Anchor: vec3{0, 1, 0}, Normal: vec3{0, 1, 0}, Weight: 1},
		{Kind: CorrPlane, Query: vec3{2, -1, 3}, Anchor: vec3{2, -1, 3}, Normal: vec3{0, 1, 0}, Weight: 1},
		{Kind: CorrPlane, Query: vec3{0, 0, 1}, Anchor: vec3{0, 0, 1}, Normal: vec3{0, 0, 1}, Weight: 1},
		{Kind: CorrPlane, Query: vec3{-1, -1, 2}, Anchor: vec3{-1, -1, 2}, Normal: vec3{0, 0, 1}, Weight: 1},
	}
	matchFn := func(Pose6) []Correspondence { return corrs }

	init := Pose6{RZ: 0.01, TX: 0.05, TY: -0.02}
	got, err := s.Solve(init, matchFn, 1e-2, 10)
	if err != nil {
		t.Fatalf("Solve from a small perturbation of an exact fit returned error: %v", err)
	}
	if !approxPose(got, IdentityPose6(), 1e-3) {
		t.Errorf("Solve should converge back to the identity pose, got %+v", got)
	}
}

func buildCornerPoints() []vec3 {
	offsets := []float64{-3, -2, -1, 1, 2, 3}
	var pts []vec3
	for _, a := range offsets {
		for _, b := range offsets {
			pts = append(pts, vec3{a, b, 0}) // floor, z=0
			pts = append(pts, vec3{a, 0, b}) // wall, y=0
			pts = append(pts, vec3{0, a, b}) // wall, x=0
		}
	}
	return pts
}

func TestLMSolverRecoversPoseFromCornerGeometry(t *testing.T) {
	trueDelta := Pose6{RZ: 0.05, TX: 0.2, TY: -0.1, TZ: 0.05}
	world := buildCornerPoints()

	local := make([]vec3, len(world))
	inv := trueDelta.Inverse()
	for i, p := range world {
		local[i] = inv.Transform(p)
	}

	index := NewSpatialIndex(world, nil, 0.8)
	cfg := solverTestConfig()
	matcher := NewFeatureMatcher(cfg, EgoMotionVariant, 0, 0)
	matchFn := func(pose Pose6) []Correspondence {
		return matcher.MatchPlanes(local, pose, index)
	}

	s := NewLMSolver(cfg)
	got, err := s.Solve(IdentityPose6(), matchFn, 1e-2, 10)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	gotV, wantV := got.Vector(), trueDelta.Vector()
	for i := range gotV {
		if math.Abs(gotV[i]-wantV[i]) > 0.03 {
			t.Errorf("recovered pose component %d = %f, want %f (within 0.03)", i, gotV[i], wantV[i])
		}
	}
}
