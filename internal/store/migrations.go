package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per tracking run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL CHECK(source IN ('browser', 'camera')),
			window_size INTEGER NOT NULL,
			filter_absent INTEGER NOT NULL DEFAULT 1,
			gate INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Orientation samples table - raw and smoothed output per upstream event
		`CREATE TABLE IF NOT EXISTS orientation_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			raw TEXT NOT NULL,
			smoothed TEXT NOT NULL,
			recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, seq)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_orientation_samples_session_id ON orientation_samples(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
