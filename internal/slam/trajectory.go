package slam

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TworldEntry is one accumulated world pose with its sweep timestamp.
type TworldEntry struct {
	Timestamp float64
	Pose      Pose6
}

// TworldList accumulates SlamEngine's world-frame trajectory and supports
// the plain-text line-oriented import/export convention used throughout
// this pack for trajectory data.
type TworldList struct {
	entries []TworldEntry
}

// NewTworldList returns an empty trajectory.
func NewTworldList() *TworldList {
	return &TworldList{}
}

// Append records one pose at the given sweep timestamp.
func (l *TworldList) Append(timestamp float64, pose Pose6) {
	l.entries = append(l.entries, TworldEntry{Timestamp: timestamp, Pose: pose})
}

// Len returns the number of recorded poses.
func (l *TworldList) Len() int { return len(l.entries) }

// At returns the i'th entry.
func (l *TworldList) At(i int) TworldEntry { return l.entries[i] }

// Last returns the most recent entry, or ok=false if the trajectory is
// empty.
func (l *TworldList) Last() (TworldEntry, bool) {
	if len(l.entries) == 0 {
		return TworldEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// WriteTo exports the trajectory as whitespace-separated lines of
// "timestamp rx ry rz tx ty tz", one pose per line.
func (l *TworldList) WriteTo(w io.Writer) (int64, error) {
	var n int64
	bw := bufio.NewWriter(w)
	for _, e := range l.entries {
		v := e.Pose.Vector()
		line := fmt.Sprintf("%.9f %.9f %.9f %.9f %.9f %.9f %.9f\n",
			e.Timestamp, v[0], v[1], v[2], v[3], v[4], v[5])
		m, err := bw.WriteString(line)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadTworldList parses the line-oriented format WriteTo produces.
func ReadTworldList(r io.Reader) (*TworldList, error) {
	l := NewTworldList()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 7 {
			return nil, fmt.Errorf("slam: trajectory line %d: expected 7 fields, got %d", lineNo, len(fields))
		}
		var vals [7]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("slam: trajectory line %d: %w", lineNo, err)
			}
			vals[i] = v
		}
		l.Append(vals[0], FromVector([6]float64{vals[1], vals[2], vals[3], vals[4], vals[5], vals[6]}))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}
