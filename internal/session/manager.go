// Package session manages staff browser sessions: opaque cookie tokens
// with a sliding inactivity TTL.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// TTL clamp bounds. Misconfigured values land inside this range instead of
// failing startup.
const (
	MinTTL = 10 * time.Second
	MaxTTL = 24 * time.Hour
)

type Session struct {
	Token      string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	onExpire func(*Session)
}

// NewManager clamps ttl into [MinTTL, MaxTTL].
func NewManager(ttl time.Duration) *Manager {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// TTL returns the clamped session lifetime, used for cookie max-age.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create mints a new session token.
func (m *Manager) Create() *Session {
	now := time.Now().UTC()
	s := &Session{
		Token:      uuid.NewString(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return clone(s)
}

// Touch validates the token and slides its inactivity window. Expired
// tokens are removed and reported as not found.
func (m *Manager) Touch(token string) error {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return ErrNotFound
	}
	if now.Sub(s.LastSeenAt) >= m.ttl {
		delete(m.sessions, token)
		return ErrNotFound
	}
	s.LastSeenAt = now
	return nil
}

// Revoke removes the token (staff logout). Revoking an unknown token is
// not an error.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartJanitor evicts expired sessions on interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for token, s := range m.sessions {
		if now.Sub(s.LastSeenAt) < m.ttl {
			continue
		}
		delete(m.sessions, token)
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
