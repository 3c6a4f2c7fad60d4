package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/parley/internal/domain"
)

// SessionRepo persists sessions in the `sessions` table. The transcript is
// stored as a JSONB column; `user_name_key` holds the case-folded user name
// and carries the uniqueness constraint.
//
//	CREATE TABLE sessions (
//	    id            BIGINT      NOT NULL,
//	    user_name     TEXT        NOT NULL,
//	    user_name_key TEXT        NOT NULL UNIQUE,
//	    agent_name    TEXT        NOT NULL,
//	    transcript    JSONB       NOT NULL DEFAULT '[]',
//	    ended         BOOLEAN     NOT NULL DEFAULT FALSE,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Find(ctx context.Context, userName string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_name, agent_name, transcript, ended, created_at, updated_at
		 FROM sessions WHERE user_name_key = $1`,
		domain.NormalizeUserName(userName),
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.Find: %w", err)
	}

	return sess, nil
}

func (r *SessionRepo) AllFor(ctx context.Context, userName string) ([]*domain.Session, error) {
	sess, err := r.Find(ctx, userName)
	if err != nil {
		return nil, err
	}

	return []*domain.Session{sess}, nil
}

func (r *SessionRepo) Upsert(ctx context.Context, sess *domain.Session) error {
	transcript, err := json.Marshal(sess.Transcript)
	if err != nil {
		return fmt.Errorf("sessionRepo.Upsert: marshal transcript: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_name, user_name_key, agent_name, transcript, ended, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_name_key) DO UPDATE SET
		     user_name = EXCLUDED.user_name,
		     transcript = EXCLUDED.transcript,
		     ended = EXCLUDED.ended,
		     updated_at = EXCLUDED.updated_at`,
		sess.ID, sess.UserName, domain.NormalizeUserName(sess.UserName), sess.AgentName,
		transcript, sess.Ended, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Upsert: %w", err)
	}

	return nil
}

func (r *SessionRepo) DeleteAll(ctx context.Context, userName string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM sessions WHERE user_name_key = $1`,
		domain.NormalizeUserName(userName),
	)
	if err != nil {
		return 0, fmt.Errorf("sessionRepo.DeleteAll: %w", err)
	}

	removed := int(tag.RowsAffected())
	if removed == 0 {
		return 0, domain.ErrNotFound
	}

	return removed, nil
}

func (r *SessionRepo) Count(ctx context.Context) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sessionRepo.Count: %w", err)
	}

	return count, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		sess       domain.Session
		transcript []byte
	)

	err := row.Scan(&sess.ID, &sess.UserName, &sess.AgentName, &transcript, &sess.Ended, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(transcript, &sess.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}

	return &sess, nil
}
