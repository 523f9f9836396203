package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the default on-disk backend: a single-file database with
// no external service, which suits a LAN kiosk box.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The driver serializes through a single connection; more would contend
	// on the file lock.
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_memories (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			source_quote TEXT NOT NULL DEFAULT '',
			personal_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pending_session_summaries (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			topics TEXT NOT NULL DEFAULT '[]',
			staff_notes TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_memories_status ON pending_memories (status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_summaries_status ON pending_session_summaries (status, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreatePendingMemory(ctx context.Context, m PendingMemory) (PendingMemory, error) {
	m = sanitizeMemory(m)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Status = StatusPending

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_memories (id, kind, value, source_quote, personal_name, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Kind, m.Value, m.SourceQuote, m.PersonalName, m.Status, m.CreatedAt,
	)
	if err != nil {
		return PendingMemory{}, fmt.Errorf("create pending memory: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListPendingMemories(ctx context.Context) ([]PendingMemory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, value, source_quote, personal_name, status, created_at
		 FROM pending_memories WHERE status = ? ORDER BY created_at`, StatusPending)
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

func (s *SQLiteStore) ResolvePendingMemory(ctx context.Context, id string, confirm bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_memories SET status = ? WHERE id = ? AND status = ?`,
		resolvedStatus(confirm), id, StatusPending)
	if err != nil {
		return fmt.Errorf("resolve pending memory: %w", err)
	}
	return requireOneRow(res)
}

func (s *SQLiteStore) CreatePendingSessionSummary(ctx context.Context, sum PendingSessionSummary) (PendingSessionSummary, error) {
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	sum.Status = StatusPending

	topics, err := json.Marshal(emptyIfNil(sum.Topics))
	if err != nil {
		return PendingSessionSummary{}, fmt.Errorf("encode topics: %w", err)
	}
	notes, err := json.Marshal(emptyIfNil(sum.StaffNotes))
	if err != nil {
		return PendingSessionSummary{}, fmt.Errorf("encode staff notes: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_session_summaries (id, title, summary, topics, staff_notes, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Title, sum.Summary, string(topics), string(notes), sum.Status, sum.CreatedAt,
	)
	if err != nil {
		return PendingSessionSummary{}, fmt.Errorf("create pending summary: %w", err)
	}
	return sum, nil
}

func (s *SQLiteStore) ListPendingSessionSummaries(ctx context.Context) ([]PendingSessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, topics, staff_notes, status, created_at
		 FROM pending_session_summaries WHERE status = ? ORDER BY created_at`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending summaries: %w", err)
	}
	defer rows.Close()

	out := make([]PendingSessionSummary, 0)
	for rows.Next() {
		var sum PendingSessionSummary
		var topics, notes string
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Summary, &topics, &notes, &sum.Status, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending summary: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &sum.Topics); err != nil {
			return nil, fmt.Errorf("decode topics: %w", err)
		}
		if err := json.Unmarshal([]byte(notes), &sum.StaffNotes); err != nil {
			return nil, fmt.Errorf("decode staff notes: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ResolvePendingSessionSummary(ctx context.Context, id string, confirm bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_session_summaries SET status = ? WHERE id = ? AND status = ?`,
		resolvedStatus(confirm), id, StatusPending)
	if err != nil {
		return fmt.Errorf("resolve pending summary: %w", err)
	}
	return requireOneRow(res)
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
