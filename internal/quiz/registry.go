package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
	"github.com/google/uuid"
)

// Registry tracks the active quiz session of every client. Each owner has
// at most one current session; beginning a new one cancels the previous.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session // session id -> session
	current  map[string]string   // owner -> session id
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		current:  make(map[string]string),
		now:      time.Now,
	}
}

// OwnerKey builds the registry owner key for a user's browser tab.
func OwnerKey(userID, tabID string) string {
	return userID + ":" + tabID
}

// Begin registers a new loading session for owner and returns it.
func (r *Registry) Begin(owner string, kind domain.ContextKind, contextID, title string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if prevID, ok := r.current[owner]; ok {
		if prev := r.sessions[prevID]; prev != nil {
			prev.Cancel(now)
			slog.Debug("Quiz session replaced", "owner", owner, "session_id", prevID)
		}
		delete(r.sessions, prevID)
	}

	s := newSession(uuid.NewString(), owner, kind, contextID, title, now)
	r.sessions[s.id] = s
	r.current[owner] = s.id
	return s
}

// Attach starts session id with the generated quiz. It fails with
// domain.ErrStaleSession when the session was closed or replaced while the
// quiz was being generated.
func (r *Registry) Attach(id string, q domain.Quiz) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || r.current[s.owner] != id {
		return nil, fmt.Errorf("attach quiz to %s: %w", id, domain.ErrStaleSession)
	}
	if s.State() != StateLoading {
		return nil, fmt.Errorf("attach quiz to %s: %w", id, domain.ErrStaleSession)
	}
	if err := s.Start(q, r.now()); err != nil {
		s.Fail(err, r.now())
		r.removeLocked(s)
		return nil, err
	}
	return s, nil
}

// Get returns owner's session with the given id.
func (r *Registry) Get(owner, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.owner != owner {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	return s, nil
}

// Fail marks a loading session failed and removes it.
func (r *Registry) Fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.Fail(err, r.now())
		r.removeLocked(s)
	}
}

// Close cancels and removes owner's session. It reports whether a session
// was removed.
func (r *Registry) Close(owner, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.owner != owner {
		return false
	}
	s.Cancel(r.now())
	r.removeLocked(s)
	return true
}

// CloseCurrent cancels and removes owner's current session, including one
// whose quiz is still being generated. It returns the closed session id.
func (r *Registry) CloseCurrent(owner string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.current[owner]
	if !ok {
		return "", false
	}
	if s := r.sessions[id]; s != nil {
		s.Cancel(r.now())
		r.removeLocked(s)
	} else {
		delete(r.current, owner)
	}
	return id, true
}

// Remove drops a session that reached a terminal state.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		r.removeLocked(s)
	}
}

func (r *Registry) removeLocked(s *Session) {
	delete(r.sessions, s.id)
	if r.current[s.owner] == s.id {
		delete(r.current, s.owner)
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep cancels and removes sessions idle for longer than ttl and returns
// how many were removed.
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for _, s := range r.sessions {
		if now.Sub(s.idleSince()) <= ttl {
			continue
		}
		s.Cancel(now)
		r.removeLocked(s)
		removed++
	}
	return removed
}

const sweepInterval = time.Minute

// StartSweeper runs a background goroutine that periodically removes
// abandoned sessions until ctx is done.
func StartSweeper(ctx context.Context, r *Registry, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Quiz session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(ttl); n > 0 {
					slog.Info("Quiz session sweeper removed idle sessions", "count", n)
				}
			case <-ctx.Done():
				slog.Info("Quiz session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
