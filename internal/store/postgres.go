package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the review queues with PostgreSQL for deployments
// that already run one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_memories (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			source_quote TEXT NOT NULL DEFAULT '',
			personal_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS pending_session_summaries (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			topics TEXT[] NOT NULL DEFAULT '{}',
			staff_notes TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_memories_status ON pending_memories (status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_summaries_status ON pending_session_summaries (status, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreatePendingMemory(ctx context.Context, m PendingMemory) (PendingMemory, error) {
	m = sanitizeMemory(m)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Status = StatusPending

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_memories (id, kind, value, source_quote, personal_name, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Kind, m.Value, m.SourceQuote, m.PersonalName, m.Status, m.CreatedAt,
	)
	if err != nil {
		return PendingMemory{}, fmt.Errorf("create pending memory: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListPendingMemories(ctx context.Context) ([]PendingMemory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, value, source_quote, personal_name, status, created_at
		 FROM pending_memories WHERE status = $1 ORDER BY created_at`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending memories: %w", err)
	}
	defer rows.Close()

	out := make([]PendingMemory, 0)
	for rows.Next() {
		var m PendingMemory
		if err := rows.Scan(&m.ID, &m.Kind, &m.Value, &m.SourceQuote, &m.PersonalName, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ResolvePendingMemory(ctx context.Context, id string, confirm bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_memories SET status = $1 WHERE id = $2 AND status = $3`,
		resolvedStatus(confirm), id, StatusPending)
	if err != nil {
		return fmt.Errorf("resolve pending memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreatePendingSessionSummary(ctx context.Context, sum PendingSessionSummary) (PendingSessionSummary, error) {
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	sum.Status = StatusPending

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_session_summaries (id, title, summary, topics, staff_notes, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sum.ID, sum.Title, sum.Summary, emptyIfNil(sum.Topics), emptyIfNil(sum.StaffNotes), sum.Status, sum.CreatedAt,
	)
	if err != nil {
		return PendingSessionSummary{}, fmt.Errorf("create pending summary: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) ListPendingSessionSummaries(ctx context.Context) ([]PendingSessionSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, summary, topics, staff_notes, status, created_at
		 FROM pending_session_summaries WHERE status = $1 ORDER BY created_at`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending summaries: %w", err)
	}
	defer rows.Close()

	out := make([]PendingSessionSummary, 0)
	for rows.Next() {
		var sum PendingSessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Summary, &sum.Topics, &sum.StaffNotes, &sum.Status, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ResolvePendingSessionSummary(ctx context.Context, id string, confirm bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_session_summaries SET status = $1 WHERE id = $2 AND status = $3`,
		resolvedStatus(confirm), id, StatusPending)
	if err != nil {
		return fmt.Errorf("resolve pending summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
