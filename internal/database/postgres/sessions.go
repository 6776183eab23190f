package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facevote/internal/database"
)

// SessionRepository provides PostgreSQL-backed verification session storage.
// Terminal transitions use conditional updates guarded on status = 'pending'
// so concurrent writers resolve first-write-wins without row locks held
// across application code.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new pending session
func (r *SessionRepository) Create(ctx context.Context, s *database.VerificationSession) error {
	query := `
		INSERT INTO verification_sessions
			(id, user_id, purpose, election_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.UserID, s.Purpose, s.ElectionID, s.Status, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*database.VerificationSession, error) {
	query := `
		SELECT id, user_id, purpose, COALESCE(election_id::text, ''),
		       status, verified, matric, consumed, created_at, expires_at
		FROM verification_sessions
		WHERE id = $1
	`

	var s database.VerificationSession
	var verified sql.NullBool
	var matric sql.NullString

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Purpose, &s.ElectionID,
		&s.Status, &verified, &matric, &s.Consumed, &s.CreatedAt, &s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if verified.Valid {
		s.Result = &database.Outcome{Verified: verified.Bool, Matric: matric.String}
	}
	return &s, nil
}

// Complete records the terminal outcome of a pending session. The WHERE
// clause makes the transition atomic: only one writer sees a rows-affected
// count of 1.
func (r *SessionRepository) Complete(ctx context.Context, id string, outcome database.Outcome) error {
	query := `
		UPDATE verification_sessions
		SET status = $2, verified = $3, matric = NULLIF($4, '')
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query,
		id, database.SessionCompleted, outcome.Verified, outcome.Matric, database.SessionPending)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return r.checkResolved(ctx, id, result)
}

// MarkExpired flips a pending session to expired
func (r *SessionRepository) MarkExpired(ctx context.Context, id string) error {
	query := `
		UPDATE verification_sessions
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, id, database.SessionExpired, database.SessionPending)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return r.checkResolved(ctx, id, result)
}

// MarkConsumed records that a completed session's outcome has been redeemed
func (r *SessionRepository) MarkConsumed(ctx context.Context, id string) error {
	query := `
		UPDATE verification_sessions
		SET consumed = TRUE
		WHERE id = $1 AND status = $2 AND NOT consumed
	`

	result, err := r.pool.Exec(ctx, query, id, database.SessionCompleted)
	if err != nil {
		return fmt.Errorf("consume session: %w", err)
	}
	return r.checkResolved(ctx, id, result)
}

// checkResolved maps a zero rows-affected conditional update to the right
// sentinel: unknown session or already-resolved session.
func (r *SessionRepository) checkResolved(ctx context.Context, id string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM verification_sessions WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check session exists: %w", err)
	}
	if !exists {
		return database.ErrSessionNotFound
	}
	return database.ErrSessionAlreadyResolved
}

// ExpireOverdue marks all pending sessions past their deadline as expired
func (r *SessionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE verification_sessions
		SET status = $1
		WHERE status = $2 AND expires_at < $3
	`

	result, err := r.pool.Exec(ctx, query, database.SessionExpired, database.SessionPending, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ database.SessionStore = (*SessionRepository)(nil)
