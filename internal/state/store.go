// Package state persists sync progress in SQLite so an interrupted run
// resumes at month-window granularity and completed files are not fetched
// again.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Transfer statuses.
const (
	StatusDownloaded = "downloaded"
	StatusUploaded   = "uploaded"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is the SQLite-backed progress store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Transfer is the last recorded outcome for one recording file.
type Transfer struct {
	MeetingUUID string
	FileID      string
	Path        string
	Size        int64
	Status      string
	RemoteID    string
	Error       string
	UpdatedAt   time.Time
}

// Open creates or opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MarkWindowComplete records that every file in the window was processed.
func (s *Store) MarkWindowComplete(ctx context.Context, start, end time.Time, meetings int) error {
	return s.exec(ctx,
		`INSERT INTO windows (start_date, end_date, meetings, completed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(start_date, end_date) DO UPDATE SET meetings = excluded.meetings, completed_at = excluded.completed_at`,
		dateKey(start), dateKey(end), meetings, s.timestamp())
}

// WindowComplete reports whether the window was marked complete.
func (s *Store) WindowComplete(ctx context.Context, start, end time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM windows WHERE start_date = ? AND end_date = ?",
		dateKey(start), dateKey(end)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query window: %w", err)
	}
	return count > 0, nil
}

// ResetWindows forgets every completed window so the next run rescans the
// whole range.
func (s *Store) ResetWindows(ctx context.Context) error {
	return s.exec(ctx, "DELETE FROM windows")
}

// RecordTransfer upserts the outcome for one file.
func (s *Store) RecordTransfer(ctx context.Context, t Transfer) error {
	if t.MeetingUUID == "" || t.FileID == "" {
		return errors.New("state: transfer requires meeting uuid and file id")
	}
	return s.exec(ctx,
		`INSERT INTO transfers (meeting_uuid, file_id, path, size, status, remote_id, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(meeting_uuid, file_id) DO UPDATE SET
		   path = excluded.path, size = excluded.size, status = excluded.status,
		   remote_id = excluded.remote_id, error = excluded.error, updated_at = excluded.updated_at`,
		t.MeetingUUID, t.FileID, t.Path, t.Size, t.Status, t.RemoteID, t.Error, s.timestamp())
}

// Transfers lists recorded transfers, optionally filtered by status, ordered
// by most recent update.
func (s *Store) Transfers(ctx context.Context, status string) ([]Transfer, error) {
	query := "SELECT meeting_uuid, file_id, path, size, status, remote_id, error, updated_at FROM transfers"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC, meeting_uuid, file_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		var t Transfer
		var updated string
		if err := rows.Scan(&t.MeetingUUID, &t.FileID, &t.Path, &t.Size, &t.Status, &t.RemoteID, &t.Error, &updated); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}

// Transfer returns the recorded outcome for one file, or nil.
func (s *Store) Transfer(ctx context.Context, meetingUUID, fileID string) (*Transfer, error) {
	var t Transfer
	var updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT meeting_uuid, file_id, path, size, status, remote_id, error, updated_at FROM transfers WHERE meeting_uuid = ? AND file_id = ?",
		meetingUUID, fileID).Scan(&t.MeetingUUID, &t.FileID, &t.Path, &t.Size, &t.Status, &t.RemoteID, &t.Error, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transfer: %w", err)
	}
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &t, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
