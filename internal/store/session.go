package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Source identifies where a session's frames came from.
type Source string

const (
	// SourceBrowser is a session fed by landmark frames over WebSocket.
	SourceBrowser Source = "browser"
	// SourceCamera is a session fed by the local camera and detector.
	SourceCamera Source = "camera"
)

// Session describes one recorded tracking run.
type Session struct {
	ID           string
	Source       Source
	WindowSize   int
	FilterAbsent bool
	Gate         bool
	StartedAt    time.Time
	EndedAt      *time.Time
	Samples      int
}

// SessionRepository provides access to recorded sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. An empty ID is filled with a random UUID.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.StartedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, window_size, filter_absent, gate, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Source), sess.WindowSize, sess.FilterAbsent, sess.Gate, sess.StartedAt,
	)
	return err
}

// End marks a session as finished.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `s.id, s.source, s.window_size, s.filter_absent, s.gate, s.started_at, s.ended_at,
	(SELECT COUNT(*) FROM orientation_samples o WHERE o.session_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var source string
	var filterAbsent, gate int
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &source, &sess.WindowSize, &filterAbsent, &gate, &sess.StartedAt, &endedAt, &sess.Samples)
	if err != nil {
		return nil, err
	}

	sess.Source = Source(source)
	sess.FilterAbsent = filterAbsent != 0
	sess.Gate = gate != 0
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its samples.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
