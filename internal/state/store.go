// Package state persists what must survive restarts: the per-file hash
// baseline (updated only after a confirmed push), upload counters, and the
// attempt history log.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store wraps the SQLite database with the engine's persistence operations.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Attempt is one recorded sync attempt.
type Attempt struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	ChangedFiles int       `json:"changed_files"`
}

// Stats are the lifetime upload counters.
type Stats struct {
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	FirstUploadAt time.Time `json:"first_upload_at"`
	LastUploadAt  time.Time `json:"last_upload_at"`
}

// Baseline returns the filename -> last-confirmed-uploaded hash map.
// An empty database yields an empty map.
func (s *Store) Baseline(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filename, hash FROM baseline;")
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	defer rows.Close()

	baseline := make(map[string]string)
	for rows.Next() {
		var filename, hash string
		if err := rows.Scan(&filename, &hash); err != nil {
			return nil, fmt.Errorf("scan baseline row: %w", err)
		}
		baseline[filename] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baseline: %w", err)
	}
	return baseline, nil
}

// ReplaceBaseline atomically swaps the stored baseline for the given map.
// Called only after a confirmed successful push, never speculatively.
func (s *Store) ReplaceBaseline(ctx context.Context, hashes map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM baseline;"); err != nil {
		return fmt.Errorf("clear baseline: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for filename, hash := range hashes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO baseline(filename, hash, updated_at) VALUES(?, ?, ?);",
			filename, hash, now); err != nil {
			return fmt.Errorf("insert baseline %s: %w", filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RecordAttempt appends the attempt to the history log and bumps the
// counters. The last (and first) upload timestamps move only on success.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		return fmt.Errorf("attempt id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	success := 0
	if a.Success {
		success = 1
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO upload_history(id, started_at, completed_at, success, message, changed_files)
VALUES(?, ?, ?, ?, ?, ?);`,
		a.ID,
		a.StartedAt.UTC().Format(time.RFC3339Nano),
		a.CompletedAt.UTC().Format(time.RFC3339Nano),
		success,
		a.Message,
		a.ChangedFiles); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO upload_stats(id) VALUES(1);"); err != nil {
		return fmt.Errorf("seed stats row: %w", err)
	}

	completed := a.CompletedAt.UTC().Format(time.RFC3339Nano)
	if a.Success {
		if _, err := tx.ExecContext(ctx, `
UPDATE upload_stats SET
  total = total + 1,
  succeeded = succeeded + 1,
  last_upload_at = ?,
  first_upload_at = COALESCE(first_upload_at, ?)
WHERE id = 1;`, completed, completed); err != nil {
			return fmt.Errorf("update stats: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
UPDATE upload_stats SET
  total = total + 1,
  failed = failed + 1
WHERE id = 1;`); err != nil {
			return fmt.Errorf("update stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Stats returns the lifetime counters. An untouched database yields zeros.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT total, succeeded, failed, first_upload_at, last_upload_at FROM upload_stats WHERE id = 1;",
	).Scan(&st.Total, &st.Succeeded, &st.Failed, &first, &last)
	if err == sql.ErrNoRows {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}

	if first.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, first.String); err == nil {
			st.FirstUploadAt = ts
		}
	}
	if last.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			st.LastUploadAt = ts
		}
	}
	return st, nil
}

// History returns the most recent attempts, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, completed_at, success, message, changed_files
FROM upload_history
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var started, completed string
		var success int
		if err := rows.Scan(&a.ID, &started, &completed, &success, &a.Message, &a.ChangedFiles); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		a.Success = success == 1
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			a.StartedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, completed); err == nil {
			a.CompletedAt = ts
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return attempts, nil
}

// PruneHistory deletes attempts older than the retention window.
func (s *Store) PruneHistory(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM upload_history WHERE started_at < ?;", cutoff); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
