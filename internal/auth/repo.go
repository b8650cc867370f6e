package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSessionAudit implements SessionAudit using PostgreSQL.
type PGSessionAudit struct {
	pool *pgxpool.Pool
}

// NewSessionAudit constructs a PostgreSQL session audit store.
func NewSessionAudit(pool *pgxpool.Pool) *PGSessionAudit {
	return &PGSessionAudit{pool: pool}
}

// CreateSession persists a new login session for auditing.
func (r *PGSessionAudit) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))
	`, id, userID, expiresAt.UTC(), ip, ua)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *PGSessionAudit) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

var _ SessionAudit = (*PGSessionAudit)(nil)
