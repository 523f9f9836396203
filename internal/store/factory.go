package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects the backend. Backend "auto" prefers postgres when a
// DATABASE_URL is present and falls back to the sqlite file otherwise.
type Config struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
}

// New builds the configured store backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == "auto" {
		if strings.TrimSpace(cfg.DatabaseURL) != "" {
			backend = "postgres"
		} else {
			backend = "sqlite"
		}
	}

	switch backend {
	case "memory":
		return NewInMemoryStore(), nil
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "wakaba.db"
		}
		return NewSQLiteStore(ctx, path)
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("store backend postgres requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
