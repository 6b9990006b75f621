// Package pgstore keeps sessions in PostgreSQL.
//
// The pgx pool is owned by the caller; Store never closes it. Invalidation is
// a single conditional UPDATE so concurrent renewals and logouts never observe
// a half-written row.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
)

var _ sessions.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pgstore: nil pool")
	}
	return &Store{pool: pool}, nil
}

// Open connects a pool to dsn and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return pool, nil
}

const sessionColumns = `id, user_id, user_agent, valid, created_at, updated_at`

func scanSession(row pgx.Row) (*sessions.Session, error) {
	var s sessions.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.Valid, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (s *Store) Create(ctx context.Context, userID, userAgent string) (*sessions.Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, user_agent, valid)
		VALUES ($1, $2, $3, TRUE)
		RETURNING `+sessionColumns,
		uuid.NewString(), userID, userAgent)

	sess, err := scanSession(row)
	if err != nil {
		return nil, unavailable("create", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return sess, nil
}

func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET valid = FALSE, updated_at = now()
		WHERE id = $1 AND valid`, sessionID)
	if err != nil {
		return unavailable("invalidate", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing changed: either already invalid or unknown.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return unavailable("invalidate", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND valid
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	list := make([]*sessions.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, unavailable("list", err)
		}
		list = append(list, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return list, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: session %s: %v", errs.ErrStorageUnavailable, op, err)
}
