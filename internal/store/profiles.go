package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ykushch/ferryman/internal/remote"
	"github.com/ykushch/ferryman/internal/session"
)

// Profiles persists saved connections, keyed by name. It satisfies
// session.ProfileStore.
type Profiles struct {
	db *sql.DB
}

// Save upserts a profile by name. The secret is stored base64-encoded.
func (p *Profiles) Save(ctx context.Context, prof session.Profile) error {
	if prof.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	lastUsed := sql.NullTime{Time: prof.LastUsed, Valid: !prof.LastUsed.IsZero()}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO connections (name, protocol, host, port, username, secret, use_tls, favorite, last_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name) DO UPDATE SET
			protocol = EXCLUDED.protocol,
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			username = EXCLUDED.username,
			secret = EXCLUDED.secret,
			use_tls = EXCLUDED.use_tls,
			favorite = EXCLUDED.favorite,
			last_used = EXCLUDED.last_used`,
		prof.Name, string(prof.Protocol), prof.Host, prof.Port, prof.Username,
		encodeSecret(prof.Password), prof.UseTLS, prof.Favorite, lastUsed)
	if err != nil {
		return fmt.Errorf("save profile %q: %w", prof.Name, err)
	}
	return nil
}

// Get loads a profile by name and touches its last_used stamp.
func (p *Profiles) Get(ctx context.Context, name string) (session.Profile, error) {
	var prof session.Profile
	var protocol, secret string
	var lastUsed sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT name, protocol, host, port, username, secret, use_tls, favorite, last_used
		 FROM connections WHERE name = $1`, name).
		Scan(&prof.Name, &protocol, &prof.Host, &prof.Port, &prof.Username,
			&secret, &prof.UseTLS, &prof.Favorite, &lastUsed)
	if err == sql.ErrNoRows {
		return session.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	if err != nil {
		return session.Profile{}, fmt.Errorf("get profile %q: %w", name, err)
	}
	prof.Protocol = remote.Protocol(protocol)
	prof.Password = decodeSecret(secret)
	if lastUsed.Valid {
		prof.LastUsed = lastUsed.Time
	}

	if _, err := p.db.ExecContext(ctx,
		`UPDATE connections SET last_used = $1 WHERE name = $2`, time.Now(), name); err != nil {
		return session.Profile{}, fmt.Errorf("touch profile %q: %w", name, err)
	}
	return prof, nil
}

// List returns profiles, favorites first, most recently used within each
// group. favoritesOnly narrows the result to favorites.
func (p *Profiles) List(ctx context.Context, favoritesOnly bool) ([]session.Profile, error) {
	query := `SELECT name, protocol, host, port, username, secret, use_tls, favorite, last_used
		 FROM connections`
	if favoritesOnly {
		query += ` WHERE favorite`
	}
	query += ` ORDER BY favorite DESC, last_used DESC NULLS LAST, name`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []session.Profile
	for rows.Next() {
		var prof session.Profile
		var protocol, secret string
		var lastUsed sql.NullTime
		if err := rows.Scan(&prof.Name, &protocol, &prof.Host, &prof.Port,
			&prof.Username, &secret, &prof.UseTLS, &prof.Favorite, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		prof.Protocol = remote.Protocol(protocol)
		prof.Password = decodeSecret(secret)
		if lastUsed.Valid {
			prof.LastUsed = lastUsed.Time
		}
		out = append(out, prof)
	}
	return out, rows.Err()
}

// Delete removes a profile and reports whether it existed.
func (p *Profiles) Delete(ctx context.Context, name string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM connections WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete profile %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
