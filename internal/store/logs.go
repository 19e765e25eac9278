package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LogEntry is one persisted application event.
type LogEntry struct {
	ID         int64
	Level      string
	Message    string
	Connection string
	CreatedAt  time.Time
}

// Logs persists application events for later inspection.
type Logs struct {
	db *sql.DB
}

// Append records one event. connection may be empty for events not tied to
// a session.
func (l *Logs) Append(ctx context.Context, level, message, connection string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO logs (level, message, connection) VALUES ($1, $2, $3)`,
		level, message, connection)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// List returns events newest first. level and connection narrow when
// non-empty; limit < 1 defaults to 100.
func (l *Logs) List(ctx context.Context, level, connection string, limit int) ([]LogEntry, error) {
	if limit < 1 {
		limit = 100
	}
	query := `SELECT id, level, message, connection, created_at FROM logs`
	var conds []string
	var args []any
	if level != "" {
		args = append(args, level)
		conds = append(conds, fmt.Sprintf("level = $%d", len(args)))
	}
	if connection != "" {
		args = append(args, connection)
		conds = append(conds, fmt.Sprintf("connection = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &e.Connection, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
