package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/hypnos/internal/apperr"
)

// Recording represents one bounded session of sample collection.
type Recording struct {
	ID          int64
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	DataCount   int64
}

// Sample is one timestamped band vector attributed to a recording.
// Samples are immutable once created.
type Sample struct {
	RecordingID   int64
	Time          time.Time
	Delta         float64
	Theta         float64
	LowAlpha      float64
	HighAlpha     float64
	LowBeta       float64
	HighBeta      float64
	LowGamma      float64
	HighGamma     float64
	Attention     float64
	Meditation    float64
	SignalQuality float64
}

// CreateRecording assigns the next identity (max+1, or 1 when the table is
// empty) and inserts the recording. Identity assignment and insert run in
// one transaction so that concurrent creators never collide.
func (db *DB) CreateRecording(rec *Recording) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var maxID sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(id) FROM recordings`).Scan(&maxID); err != nil {
		return fmt.Errorf("store: max recording id: %w", err)
	}
	rec.ID = maxID.Int64 + 1

	_, err = tx.Exec(`
		INSERT INTO recordings (id, name, description, start_time, end_time, data_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Description, rec.StartTime, rec.EndTime, rec.DataCount)
	if err != nil {
		return fmt.Errorf("store: insert recording: %w", err)
	}
	return tx.Commit()
}

// SaveRecording upserts the mutable recording fields (end_time, data_count,
// name, description).
func (db *DB) SaveRecording(rec *Recording) error {
	_, err := db.conn.Exec(`
		UPDATE recordings
		SET name = ?, description = ?, end_time = ?, data_count = ?
		WHERE id = ?
	`, rec.Name, rec.Description, rec.EndTime, rec.DataCount, rec.ID)
	if err != nil {
		return fmt.Errorf("store: save recording: %w", err)
	}
	return nil
}

// MaxRecordingID returns the highest assigned identity, or 0 when no
// recordings exist.
func (db *DB) MaxRecordingID() (int64, error) {
	var maxID sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MAX(id) FROM recordings`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("store: max recording id: %w", err)
	}
	return maxID.Int64, nil
}

// AppendSample inserts a sample and increments its recording's data-point
// count in one transaction.
func (db *DB) AppendSample(s Sample) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertSample(tx, s); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE recordings SET data_count = data_count + 1 WHERE id = ?`, s.RecordingID); err != nil {
		return fmt.Errorf("store: increment data count: %w", err)
	}
	return tx.Commit()
}

// CreateSamples bulk-inserts samples for an imported recording. The
// recording's data_count is expected to be set by the caller.
func (db *DB) CreateSamples(samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, s := range samples {
		if err := insertSample(tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSample(tx *sql.Tx, s Sample) error {
	_, err := tx.Exec(`
		INSERT INTO samples (recording_id, time, delta, theta,
			low_alpha, high_alpha, low_beta, high_beta, low_gamma, high_gamma,
			attention, meditation, signal_quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RecordingID, s.Time, s.Delta, s.Theta,
		s.LowAlpha, s.HighAlpha, s.LowBeta, s.HighBeta, s.LowGamma, s.HighGamma,
		s.Attention, s.Meditation, s.SignalQuality)
	if err != nil {
		return fmt.Errorf("store: insert sample: %w", err)
	}
	return nil
}

// GetRecording returns a recording by identity.
func (db *DB) GetRecording(id int64) (*Recording, error) {
	rec, err := scanRecording(db.conn.QueryRow(`
		SELECT id, name, description, start_time, end_time, data_count
		FROM recordings WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get recording: %w", err)
	}
	return rec, nil
}

// LatestRecording returns the recording with the most recent start time.
func (db *DB) LatestRecording() (*Recording, error) {
	rec, err := scanRecording(db.conn.QueryRow(`
		SELECT id, name, description, start_time, end_time, data_count
		FROM recordings ORDER BY start_time DESC, id DESC LIMIT 1
	`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: latest recording: %w", err)
	}
	return rec, nil
}

// ListRecordings returns all recordings, most recently started first.
func (db *DB) ListRecordings() ([]Recording, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, description, start_time, end_time, data_count
		FROM recordings ORDER BY start_time DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var rec Recording
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.StartTime, &rec.EndTime, &rec.DataCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListSamplesByRecording returns a recording's samples ordered by time.
func (db *DB) ListSamplesByRecording(id int64) ([]Sample, error) {
	rows, err := db.conn.Query(`
		SELECT recording_id, time, delta, theta,
			low_alpha, high_alpha, low_beta, high_beta, low_gamma, high_gamma,
			attention, meditation, signal_quality
		FROM samples WHERE recording_id = ? ORDER BY time, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: list samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.RecordingID, &s.Time, &s.Delta, &s.Theta,
			&s.LowAlpha, &s.HighAlpha, &s.LowBeta, &s.HighBeta, &s.LowGamma, &s.HighGamma,
			&s.Attention, &s.Meditation, &s.SignalQuality); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSamples returns the number of persisted samples for a recording.
func (db *DB) CountSamples(id int64) (int64, error) {
	var n int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM samples WHERE recording_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count samples: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.StartTime, &rec.EndTime, &rec.DataCount); err != nil {
		return nil, err
	}
	return &rec, nil
}
