package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps the review queues in-process for local/dev use and
// tests. Nothing survives a restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	memories  []PendingMemory
	summaries []PendingSessionSummary
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) CreatePendingMemory(_ context.Context, m PendingMemory) (PendingMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m = sanitizeMemory(m)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Status = StatusPending
	s.memories = append(s.memories, m)
	return m, nil
}

func (s *InMemoryStore) ListPendingMemories(_ context.Context) ([]PendingMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingMemory, 0)
	for _, m := range s.memories {
		if m.Status == StatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ResolvePendingMemory(_ context.Context, id string, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.memories {
		if s.memories[i].ID == id && s.memories[i].Status == StatusPending {
			s.memories[i].Status = resolvedStatus(confirm)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) CreatePendingSessionSummary(_ context.Context, sum PendingSessionSummary) (PendingSessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	sum.Status = StatusPending
	s.summaries = append(s.summaries, sum)
	return sum, nil
}

func (s *InMemoryStore) ListPendingSessionSummaries(_ context.Context) ([]PendingSessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingSessionSummary, 0)
	for _, sum := range s.summaries {
		if sum.Status == StatusPending {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ResolvePendingSessionSummary(_ context.Context, id string, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.summaries {
		if s.summaries[i].ID == id && s.summaries[i].Status == StatusPending {
			s.summaries[i].Status = resolvedStatus(confirm)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }
