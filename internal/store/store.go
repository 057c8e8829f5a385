package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vakquiz/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_progress (
		session_id TEXT PRIMARY KEY,
		current_index INTEGER NOT NULL DEFAULT 0,
		answers TEXT NOT NULL DEFAULT '{}',
		started_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		primary_category TEXT NOT NULL,
		visual INTEGER NOT NULL DEFAULT 0,
		auditory INTEGER NOT NULL DEFAULT 0,
		kinesthetic INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadProgress returns the stored progress for a session, or nil if absent.
// Absence is the normal fresh-session case, not an error.
func (s *Store) LoadProgress(sessionID string) (*model.SessionProgress, error) {
	var (
		p           model.SessionProgress
		answersJSON string
	)
	err := s.db.QueryRow(
		`SELECT session_id, current_index, answers, started_at FROM session_progress WHERE session_id = ?`, sessionID,
	).Scan(&p.SessionID, &p.CurrentIndex, &answersJSON, &p.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answersJSON), &p.Answers); err != nil {
		return nil, fmt.Errorf("decode answers for session %s: %w", sessionID, err)
	}
	return &p, nil
}

// UpsertProgress writes the full progress snapshot for a session,
// overwriting any prior record. Last write wins.
func (s *Store) UpsertProgress(p model.SessionProgress) error {
	answers := p.Answers
	if answers == nil {
		answers = map[int64]string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO session_progress (session_id, current_index, answers, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET current_index = ?, answers = ?, updated_at = ?`,
		p.SessionID, p.CurrentIndex, string(answersJSON), p.StartedAt, now,
		p.CurrentIndex, string(answersJSON), now,
	)
	return err
}

// DeleteProgress removes the progress record for a session.
// Deleting an absent record is not an error.
func (s *Store) DeleteProgress(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM session_progress WHERE session_id = ?`, sessionID)
	return err
}

// ProgressCount returns the number of in-progress session records.
func (s *Store) ProgressCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM session_progress`).Scan(&count)
	return count, err
}

// InsertResult records a completed session's outcome.
func (s *Store) InsertResult(rec model.ResultRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO results (session_id, primary_category, visual, auditory, kinesthetic, total, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Primary, rec.Visual, rec.Auditory, rec.Kinesthetic, rec.Total, rec.StartedAt, rec.CompletedAt,
	)
	return err
}

// GetResult returns the most recent completed result for a session,
// or nil if the session never completed.
func (s *Store) GetResult(sessionID string) (*model.ResultRecord, error) {
	var rec model.ResultRecord
	err := s.db.QueryRow(
		`SELECT session_id, primary_category, visual, auditory, kinesthetic, total, started_at, completed_at
		 FROM results WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&rec.SessionID, &rec.Primary, &rec.Visual, &rec.Auditory, &rec.Kinesthetic, &rec.Total, &rec.StartedAt, &rec.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListResults returns all completed results, newest first.
func (s *Store) ListResults() ([]model.ResultRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, primary_category, visual, auditory, kinesthetic, total, started_at, completed_at
		 FROM results ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		if err := rows.Scan(&rec.SessionID, &rec.Primary, &rec.Visual, &rec.Auditory, &rec.Kinesthetic, &rec.Total, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
