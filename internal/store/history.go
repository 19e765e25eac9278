package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryEntry is one recorded transfer outcome.
type HistoryEntry struct {
	ID         int64
	Connection string
	Operation  string
	LocalPath  string
	RemotePath string
	Status     string
	Error      string
	Size       int64
	Duration   time.Duration
	CreatedAt  time.Time
}

// History persists transfer outcomes.
type History struct {
	db *sql.DB
}

// Append records one entry.
func (h *History) Append(ctx context.Context, e HistoryEntry) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO history (connection, operation, local_path, remote_path, status, error, size, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Connection, e.Operation, e.LocalPath, e.RemotePath, e.Status, e.Error,
		e.Size, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. connection narrows to
// one connection when non-empty; limit < 1 defaults to 50.
func (h *History) List(ctx context.Context, connection string, limit int) ([]HistoryEntry, error) {
	if limit < 1 {
		limit = 50
	}
	query := `SELECT id, connection, operation, local_path, remote_path, status, error, size, duration_ms, created_at
		 FROM history`
	args := []any{}
	if connection != "" {
		query += ` WHERE connection = $1`
		args = append(args, connection)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Connection, &e.Operation, &e.LocalPath,
			&e.RemotePath, &e.Status, &e.Error, &e.Size, &durationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recorder adapts History to the queue's terminal-state sink, stamping each
// entry with the connection name current at record time.
type Recorder struct {
	history  *History
	connName func() string
}

// NewRecorder builds a queue history sink. connName is consulted per record
// so reconnects are reflected.
func NewRecorder(h *History, connName func() string) *Recorder {
	return &Recorder{history: h, connName: connName}
}

// RecordTransfer implements queue.HistorySink.
func (r *Recorder) RecordTransfer(direction, localPath, remotePath, status, errMsg string, size int64, duration time.Duration) {
	_ = r.history.Append(context.Background(), HistoryEntry{
		Connection: r.connName(),
		Operation:  direction,
		LocalPath:  localPath,
		RemotePath: remotePath,
		Status:     status,
		Error:      errMsg,
		Size:       size,
		Duration:   duration,
	})
}
