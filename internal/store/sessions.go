package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sessions is the pgx-backed SessionStore.
type Sessions struct {
	pool *pgxpool.Pool
}

// NewSessions creates a session store on the given pool.
func NewSessions(pool *pgxpool.Pool) *Sessions {
	return &Sessions{pool: pool}
}

const sessionColumns = "id, token, user_id, expires_at, created_at"

// Create inserts a session row for the user.
func (s *Sessions) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns,
		token, userID, expiresAt)

	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetByToken returns the newest session row carrying the token.
// Expiry is the caller's concern; stale rows are returned as stored.
func (s *Sessions) GetByToken(ctx context.Context, token string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1 ORDER BY id DESC LIMIT 1`, token)

	session, err := scanSession(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// DeleteByToken removes every session row carrying the token.
func (s *Sessions) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and reports how
// many rows went away.
func (s *Sessions) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
