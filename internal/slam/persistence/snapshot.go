package persistence

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// SnapshotPoint is a single rolling-grid point, the unit gob encodes for
// snapshot storage.
type SnapshotPoint struct {
	X, Y, Z float64
}

// EncodeSnapshot gob-encodes and gzip-compresses points for SaveSnapshot.
func EncodeSnapshot(points []SnapshotPoint) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gw).Encode(points); err != nil {
		return nil, fmt.Errorf("slam/persistence: encode snapshot: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("slam/persistence: close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(payload []byte) ([]SnapshotPoint, error) {
	gr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("slam/persistence: open gzip reader: %w", err)
	}
	defer gr.Close()

	var points []SnapshotPoint
	if err := gob.NewDecoder(gr).Decode(&points); err != nil {
		return nil, fmt.Errorf("slam/persistence: decode snapshot: %w", err)
	}
	return points, nil
}
