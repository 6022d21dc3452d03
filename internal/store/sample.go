package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is one recorded pipeline step: the raw orientation derived from a
// frame and the smoothed value after pushing it. Both are JSON, with null
// meaning no orientation.
type Sample struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	Seq        int64           `json:"seq"`
	Raw        json.RawMessage `json:"raw"`
	Smoothed   json.RawMessage `json:"smoothed"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SampleRepository provides access to recorded samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append inserts one sample.
func (r *SampleRepository) Append(sample *Sample) error {
	sample.RecordedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO orientation_samples (session_id, seq, raw, smoothed, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sample.SessionID, sample.Seq, rawOrNull(sample.Raw), rawOrNull(sample.Smoothed), sample.RecordedAt,
	)
	if err != nil {
		return err
	}

	sample.ID, err = result.LastInsertId()
	return err
}

// GetBySessionID retrieves samples for a session in sequence order. A limit
// of zero or less returns all of them.
func (r *SampleRepository) GetBySessionID(sessionID string, limit int) ([]Sample, error) {
	query := `SELECT id, session_id, seq, raw, smoothed, recorded_at
		 FROM orientation_samples
		 WHERE session_id = ?
		 ORDER BY seq`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var raw, smoothed string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Seq, &raw, &smoothed, &s.RecordedAt); err != nil {
			return nil, err
		}
		s.Raw = json.RawMessage(raw)
		s.Smoothed = json.RawMessage(smoothed)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

func rawOrNull(data json.RawMessage) string {
	if len(data) == 0 {
		return "null"
	}
	return string(data)
}
