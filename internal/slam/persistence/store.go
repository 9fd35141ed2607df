// Package persistence stores a SlamEngine's trajectory and rolling-map
// snapshots in SQLite, schema-versioned with golang-migrate.
package persistence

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the poses and snapshots tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path. Callers
// must call Migrate before using a fresh database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("slam/persistence: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PoseRow is one trajectory row.
type PoseRow struct {
	Timestamp              float64
	RX, RY, RZ, TX, TY, TZ float64
}

// InsertPose records one trajectory entry.
func (s *Store) InsertPose(row PoseRow) error {
	_, err := s.db.Exec(
		`INSERT INTO poses (timestamp, rx, ry, rz, tx, ty, tz) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp, row.RX, row.RY, row.RZ, row.TX, row.TY, row.TZ,
	)
	if err != nil {
		return fmt.Errorf("slam/persistence: insert pose: %w", err)
	}
	return nil
}

// Trajectory returns every recorded pose ordered by timestamp.
func (s *Store) Trajectory() ([]PoseRow, error) {
	rows, err := s.db.Query(`SELECT timestamp, rx, ry, rz, tx, ty, tz FROM poses ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("slam/persistence: query trajectory: %w", err)
	}
	defer rows.Close()

	var out []PoseRow
	for rows.Next() {
		var r PoseRow
		if err := rows.Scan(&r.Timestamp, &r.RX, &r.RY, &r.RZ, &r.TX, &r.TY, &r.TZ); err != nil {
			return nil, fmt.Errorf("slam/persistence: scan pose row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSnapshot persists an already gob+gzip-encoded rolling-grid snapshot
// under a fresh UUID, returning the snapshot ID.
func (s *Store) SaveSnapshot(label string, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO snapshots (id, label, payload) VALUES (?, ?, ?)`, id, label, payload)
	if err != nil {
		return "", fmt.Errorf("slam/persistence: save snapshot: %w", err)
	}
	return id, nil
}

// LoadSnapshot returns the raw encoded payload for the given snapshot ID.
func (s *Store) LoadSnapshot(id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("slam/persistence: load snapshot %s: %w", id, err)
	}
	return payload, nil
}

// ListSnapshots returns every snapshot's ID and label, most recent first.
func (s *Store) ListSnapshots() ([]SnapshotMeta, error) {
	rows, err := s.db.Query(`SELECT id, label, created_at FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("slam/persistence: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.ID, &m.Label, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("slam/persistence: scan snapshot row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SnapshotMeta is a snapshot row's metadata without its payload.
type SnapshotMeta struct {
	ID        string
	Label     string
	CreatedAt string
}
