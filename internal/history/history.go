// Package history records submitted extraction jobs and their outcomes in a
// local SQLite database.
package history

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/harvest/internal/task"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one recorded job.
type Entry struct {
	ID         string
	TaskID     string
	Query      string
	Columns    int
	Status     string
	Message    string
	ResultRows int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store is the SQLite-backed job history. Its Recorder methods are called
// from the controller's event loop and never surface errors there; failures
// to record are logged and dropped.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ task.Recorder = (*Store)(nil)

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for an in-memory store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// JobStarted records a newly accepted task.
func (s *Store) JobStarted(taskID, query string, columns int) {
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, task_id, query, columns, status, started_at) VALUES (?, ?, ?, ?, 'running', ?)`,
		uuid.New().String(), taskID, query, columns, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("failed to record job start", "task_id", taskID, "error", err)
	}
}

// JobFinished stamps the outcome onto the open record for taskID. Finishing
// a task that was never started is ignored.
func (s *Store) JobFinished(taskID, status, message string, rows int) {
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, message = ?, result_rows = ?, finished_at = ? WHERE task_id = ? AND finished_at IS NULL`,
		status, message, rows, time.Now().UTC(), taskID,
	)
	if err != nil {
		s.logger.Warn("failed to record job outcome", "task_id", taskID, "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Debug("job outcome for unknown task", "task_id", taskID, "status", status)
	}
}

// List returns the most recent entries, newest first, up to limit.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, task_id, query, columns, status, message, result_rows, started_at, finished_at
		 FROM jobs ORDER BY started_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var finished sql.NullTime
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Query, &e.Columns, &e.Status, &e.Message, &e.ResultRows, &e.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			e.FinishedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return entries, nil
}

// Get returns the most recent entry for a task id.
func (s *Store) Get(taskID string) (*Entry, error) {
	var e Entry
	var finished sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, task_id, query, columns, status, message, result_rows, started_at, finished_at
		 FROM jobs WHERE task_id = ? ORDER BY started_at DESC LIMIT 1`, taskID,
	).Scan(&e.ID, &e.TaskID, &e.Query, &e.Columns, &e.Status, &e.Message, &e.ResultRows, &e.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no history for task %s", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		e.FinishedAt = &t
	}
	return &e, nil
}
