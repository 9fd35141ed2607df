package slam

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTworldListAppendAndAt(t *testing.T) {
	l := NewTworldList()
	l.Append(0.0, Pose6{TX: 1})
	l.Append(0.1, Pose6{TX: 2})
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if l.At(1).Pose.TX != 2 {
		t.Errorf("At(1).Pose.TX = %f, want 2", l.At(1).Pose.TX)
	}
	last, ok := l.Last()
	if !ok || last.Timestamp != 0.1 {
		t.Errorf("Last() = %+v, ok=%v, want timestamp 0.1", last, ok)
	}
}

func TestTworldListLastEmpty(t *testing.T) {
	l := NewTworldList()
	if _, ok := l.Last(); ok {
		t.Errorf("Last() on empty list should report ok=false")
	}
}

func TestTworldListWriteReadRoundTrip(t *testing.T) {
	l := NewTworldList()
	l.Append(1.5, Pose6{RX: 0.1, RY: -0.2, RZ: 0.3, TX: 1, TY: 2, TZ: 3})
	l.Append(2.5, Pose6{RX: -0.05, TX: 4})

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo returned error: %v", err)
	}

	got, err := ReadTworldList(&buf)
	if err != nil {
		t.Fatalf("ReadTworldList returned error: %v", err)
	}

	want := make([]TworldEntry, l.Len())
	for i := range want {
		want[i] = l.At(i)
	}
	have := make([]TworldEntry, got.Len())
	for i := range have {
		have[i] = got.At(i)
	}
	if diff := cmp.Diff(want, have, cmpopts.EquateApprox(0, 1e-8)); diff != "" {
		t.Errorf("trajectory round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTworldListRejectsMalformedLine(t *testing.T) {
	_, err := ReadTworldList(strings.NewReader("1.0 2.0 3.0\n"))
	if err == nil {
		t.Errorf("ReadTworldList should reject a line with the wrong field count")
	}
}

func TestReadTworldListSkipsBlankLines(t *testing.T) {
	r := strings.NewReader("\n1.0 0 0 0 0 0 0\n\n2.0 0 0 0 1 1 1\n")
	got, err := ReadTworldList(r)
	if err != nil {
		t.Fatalf("ReadTworldList returned error: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want 2", got.Len())
	}
}
