package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on top of PostgreSQL. It expects the sessions
// table created by the bundled migrations:
//
//	sessions(token text primary key, id uuid, user_id uuid null,
//	         data jsonb, expires_at, last_activity_at, created_at)
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed session store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("session: marshal data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (token, id, user_id, data, expires_at, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.Token, session.ID, session.UserID, data,
		session.ExpiresAt, session.LastActivityAt, session.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, token string) (*Session, error) {
	var (
		session Session
		data    []byte
	)

	row := s.pool.QueryRow(ctx, `
		SELECT token, id, user_id, data, expires_at, last_activity_at, created_at
		FROM sessions WHERE token = $1`, token)
	if err := row.Scan(&session.Token, &session.ID, &session.UserID, &data,
		&session.ExpiresAt, &session.LastActivityAt, &session.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session: query: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &session.Data); err != nil {
			return nil, fmt.Errorf("session: unmarshal data: %w", err)
		}
	}

	if session.IsExpired() {
		_ = s.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

func (s *PGStore) Update(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("session: marshal data: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET user_id = $2, data = $3, expires_at = $4, last_activity_at = $5
		WHERE token = $1`,
		session.Token, session.UserID, data, session.ExpiresAt, session.LastActivityAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PGStore) UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_activity_at = $2 WHERE token = $1`,
		token, lastActivity,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *PGStore) DeleteExpired(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	return err
}

// DeleteByUserID removes all sessions for a specific user.
func (s *PGStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
