package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// backends under test; postgres needs a live server and is exercised in
// deployment, not here.
func testBackends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"inmemory": NewInMemoryStore(),
		"sqlite":   sqlite,
	}
}

func TestPendingMemoryLifecycle(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := s.CreatePendingMemory(ctx, PendingMemory{
				Kind:         "food",
				Value:        "いちごが好き",
				SourceQuote:  "いちごがすきなんだ",
				PersonalName: "みゆ",
			})
			if err != nil {
				t.Fatalf("CreatePendingMemory: %v", err)
			}
			if created.ID == "" || created.Status != StatusPending {
				t.Fatalf("created = %+v", created)
			}

			list, err := s.ListPendingMemories(ctx)
			if err != nil {
				t.Fatalf("ListPendingMemories: %v", err)
			}
			if len(list) != 1 || list[0].Value != "いちごが好き" {
				t.Fatalf("list = %+v", list)
			}

			if err := s.ResolvePendingMemory(ctx, created.ID, true); err != nil {
				t.Fatalf("ResolvePendingMemory: %v", err)
			}
			list, _ = s.ListPendingMemories(ctx)
			if len(list) != 0 {
				t.Fatalf("resolved memory still listed: %+v", list)
			}

			// Resolving twice, or resolving an unknown id, reports not found.
			if err := s.ResolvePendingMemory(ctx, created.ID, false); !errors.Is(err, ErrNotFound) {
				t.Fatalf("double resolve err = %v, want ErrNotFound", err)
			}
			if err := s.ResolvePendingMemory(ctx, "nope", true); !errors.Is(err, ErrNotFound) {
				t.Fatalf("unknown id err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPendingMemoryMasksPII(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			created, err := s.CreatePendingMemory(context.Background(), PendingMemory{
				Kind:  "likes",
				Value: "ママのメール mom@example.com がすき",
			})
			if err != nil {
				t.Fatalf("CreatePendingMemory: %v", err)
			}
			if created.Value != "ママのメール [MASKED_EMAIL] がすき" {
				t.Fatalf("value = %q, want masked", created.Value)
			}
		})
	}
}

func TestPendingSummaryLifecycle(t *testing.T) {
	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := s.CreatePendingSessionSummary(ctx, PendingSessionSummary{
				Title:   "きょうのこと",
				Summary: "こうえんの話をした。",
				Topics:  []string{"こうえん"},
			})
			if err != nil {
				t.Fatalf("CreatePendingSessionSummary: %v", err)
			}

			list, err := s.ListPendingSessionSummaries(ctx)
			if err != nil {
				t.Fatalf("ListPendingSessionSummaries: %v", err)
			}
			if len(list) != 1 || list[0].Title != "きょうのこと" {
				t.Fatalf("list = %+v", list)
			}
			if len(list[0].Topics) != 1 || list[0].Topics[0] != "こうえん" {
				t.Fatalf("topics = %+v", list[0].Topics)
			}

			if err := s.ResolvePendingSessionSummary(ctx, created.ID, false); err != nil {
				t.Fatalf("ResolvePendingSessionSummary: %v", err)
			}
			list, _ = s.ListPendingSessionSummaries(ctx)
			if len(list) != 0 {
				t.Fatalf("denied summary still listed")
			}
		})
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Config{Backend: "memory"})
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("backend = %T, want *InMemoryStore", s)
	}

	s, err = New(ctx, Config{Backend: "auto", SQLitePath: filepath.Join(t.TempDir(), "auto.db")})
	if err != nil {
		t.Fatalf("New(auto): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("backend = %T, want *SQLiteStore", s)
	}

	if _, err := New(ctx, Config{Backend: "postgres"}); err == nil {
		t.Fatalf("postgres without DATABASE_URL accepted")
	}
	if _, err := New(ctx, Config{Backend: "cassandra"}); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}
