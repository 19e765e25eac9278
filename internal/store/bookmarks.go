package store

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"time"
)

// Bookmark is a saved remote path under one connection, with a display name.
type Bookmark struct {
	ID         int64
	Connection string
	Path       string
	Name       string
	CreatedAt  time.Time
}

// Bookmarks persists remote-path bookmarks.
type Bookmarks struct {
	db *sql.DB
}

// Add saves a bookmark. An empty name defaults to the path's last element.
// Re-adding the same path under the same connection updates the name.
func (b *Bookmarks) Add(ctx context.Context, connection, bookmarkPath, name string) error {
	if bookmarkPath == "" {
		return fmt.Errorf("bookmark path cannot be empty")
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO bookmarks (connection, path, name) VALUES ($1, $2, $3)
		 ON CONFLICT (connection, path) DO UPDATE SET name = EXCLUDED.name`,
		connection, bookmarkPath, bookmarkLabel(name, bookmarkPath))
	if err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// List returns bookmarks, newest first; connection narrows when non-empty.
func (b *Bookmarks) List(ctx context.Context, connection string) ([]Bookmark, error) {
	query := `SELECT id, connection, path, name, created_at FROM bookmarks`
	args := []any{}
	if connection != "" {
		query += ` WHERE connection = $1`
		args = append(args, connection)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var bm Bookmark
		if err := rows.Scan(&bm.ID, &bm.Connection, &bm.Path, &bm.Name, &bm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

// Delete removes a bookmark by id and reports whether it existed.
func (b *Bookmarks) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete bookmark %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// bookmarkLabel picks the display name: the caller's, or the last path
// element when none was given.
func bookmarkLabel(name, p string) string {
	if name != "" {
		return name
	}
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return p
	}
	return base
}
