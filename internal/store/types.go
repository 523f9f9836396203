// Package store persists the staff review queues: consented memory
// candidates and session-summary cards, both written as pending and
// resolved by staff confirm/deny.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hoshino-robotics/wakaba/internal/policy"
)

// Review statuses. Listings only surface pending rows; resolved rows keep
// their terminal status for audit.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDenied    = "denied"
)

var ErrNotFound = errors.New("store: not found")

// PendingMemory is a consented memory candidate awaiting staff review.
type PendingMemory struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Value        string    `json:"value"`
	SourceQuote  string    `json:"source_quote,omitempty"`
	PersonalName string    `json:"personal_name,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingSessionSummary is a summarization card awaiting staff review.
type PendingSessionSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Topics     []string  `json:"topics"`
	StaffNotes []string  `json:"staff_notes"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the review-queue persistence surface.
type Store interface {
	CreatePendingMemory(ctx context.Context, m PendingMemory) (PendingMemory, error)
	ListPendingMemories(ctx context.Context) ([]PendingMemory, error)
	ResolvePendingMemory(ctx context.Context, id string, confirm bool) error

	CreatePendingSessionSummary(ctx context.Context, s PendingSessionSummary) (PendingSessionSummary, error)
	ListPendingSessionSummaries(ctx context.Context) ([]PendingSessionSummary, error)
	ResolvePendingSessionSummary(ctx context.Context, id string, confirm bool) error

	Ping(ctx context.Context) error
	Close() error
}

// sanitizeMemory masks PII in every free-text field before any backend
// writes it. Summaries are masked upstream at parse time; memory values are
// masked here so no backend can skip it.
func sanitizeMemory(m PendingMemory) PendingMemory {
	m.Value, _ = policy.MaskPII(m.Value)
	m.SourceQuote, _ = policy.MaskPII(m.SourceQuote)
	return m
}

func resolvedStatus(confirm bool) string {
	if confirm {
		return StatusConfirmed
	}
	return StatusDenied
}
