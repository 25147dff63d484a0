package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
	metadata   JSONB
);
CREATE INDEX IF NOT EXISTS sessions_updated_at_idx ON sessions (updated_at DESC);
`

// PostgresStore persists sessions in a single table with the message log as
// a jsonb column. Appends push onto the jsonb array server-side, so two
// writers never clobber each other's messages.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, sessionsSchema); err != nil {
		return nil, fmt.Errorf("creating sessions schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, req *domain.SessionCreate) (*domain.Session, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []domain.SessionMessage{},
	}
	if req != nil && len(req.Metadata) > 0 {
		sess.Metadata = req.Metadata
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, created_at, updated_at, messages, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		sess.SessionID, sess.CreatedAt, sess.UpdatedAt, sess.Messages, sess.Metadata)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT session_id, created_at, updated_at, messages, metadata
		 FROM sessions WHERE session_id = $1`, sessionID)
	return scanSession(row)
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, msg domain.SessionMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions
		 SET messages = messages || $2::jsonb, updated_at = $3
		 WHERE session_id = $1`,
		sessionID, []domain.SessionMessage{msg}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("appending to session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, created_at, updated_at, messages, metadata
		 FROM sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	err := row.Scan(&sess.SessionID, &sess.CreatedAt, &sess.UpdatedAt, &sess.Messages, &sess.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}
