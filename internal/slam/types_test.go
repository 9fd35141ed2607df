package slam

import (
	"math"
	"testing"
)

func approxPose(a, b Pose6, tol float64) bool {
	av, bv := a.Vector(), b.Vector()
	for i := range av {
		if math.Abs(av[i]-bv[i]) > tol {
			return false
		}
	}
	return true
}

func TestPose6VectorRoundTrip(t *testing.T) {
	p := Pose6{RX: 0.1, RY: -0.2, RZ: 0.3, TX: 1, TY: 2, TZ: 3}
	got := FromVector(p.Vector())
	if got != p {
		t.Errorf("FromVector(p.Vector()) = %+v, want %+v", got, p)
	}
}

func TestPose6InverseUndoesTransform(t *testing.T) {
	p := Pose6{RX: 0.2, RY: 0.3, RZ: -0.1, TX: 1, TY: -2, TZ: 0.5}
	x := vec3{3, -1, 2}
	transformed := p.Transform(x)
	back := p.Inverse().Transform(transformed)
	if back.sub(x).norm() > 1e-9 {
		t.Errorf("Inverse did not undo Transform: got %v, want %v", back, x)
	}
}

func TestComposeIdentity(t *testing.T) {
	p := Pose6{RX: 0.1, RY: 0.2, RZ: 0.3, TX: 1, TY: 2, TZ: 3}
	id := IdentityPose6()
	if !approxPose(Compose(id, p), p, 1e-9) {
		t.Errorf("Compose(identity, p) != p")
	}
	if !approxPose(Compose(p, id), p, 1e-9) {
		t.Errorf("Compose(p, identity) != p")
	}
}

func TestComposeMatchesSequentialTransform(t *testing.T) {
	p := Pose6{RX: 0.1, RY: -0.1, RZ: 0.2, TX: 1, TY: 0, TZ: 0}
	q := Pose6{RX: -0.05, RY: 0.15, RZ: -0.1, TX: 0, TY: 1, TZ: 0.5}
	x := vec3{1, 2, 3}

	composed := Compose(p, q).Transform(x)
	sequential := q.Transform(p.Transform(x))

	if composed.sub(sequential).norm() > 1e-9 {
		t.Errorf("Compose(p,q).Transform(x) = %v, want %v", composed, sequential)
	}
}

func TestPose6InverseComposesToIdentity(t *testing.T) {
	p := Pose6{RX: 0.4, RY: -0.3, RZ: 0.2, TX: 5, TY: -1, TZ: 2}
	id := Compose(p, p.Inverse())
	if !approxPose(id, IdentityPose6(), 1e-9) {
		t.Errorf("Compose(p, p.Inverse()) = %+v, want identity", id)
	}
}

func TestPoseMatrix4Layout(t *testing.T) {
	p := Pose6{TX: 1, TY: 2, TZ: 3}
	m := p.Matrix4()
	if m[3] != 1 || m[7] != 2 || m[11] != 3 || m[15] != 1 {
		t.Errorf("Matrix4 translation/homogeneous row wrong: %v", m)
	}
}

func TestKeypointLabelString(t *testing.T) {
	cases := map[KeypointLabel]string{
		LabelUnlabeled: "unlabeled",
		LabelEdge:      "edge",
		LabelPlanar:    "planar",
		LabelBlob:      "blob",
		LabelInvalid:   "invalid",
	}
	for label, want := range cases {
		if got := label.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", label, got, want)
		}
	}
}

func TestFrameScanLines(t *testing.T) {
	f := &Frame{Points: []Point{
		{ScanLineID: 1},
		{ScanLineID: 0},
		{ScanLineID: 1},
	}}
	lines := f.ScanLines()
	if len(lines[1]) != 2 || len(lines[0]) != 1 {
		t.Fatalf("ScanLines partition wrong: %v", lines)
	}
	if lines[1][0] != 0 || lines[1][1] != 2 {
		t.Errorf("ScanLines did not preserve acquisition order: %v", lines[1])
	}
}

func TestPointRange(t *testing.T) {
	p := Point{X: 3, Y: 4, Z: 0}
	if got := p.Range(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Range() = %f, want 5", got)
	}
}
