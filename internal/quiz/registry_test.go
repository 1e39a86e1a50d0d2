package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

func TestRegistryAttachAfterCloseIsStale(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := r.Begin("user:tab", domain.ContextModule, "mod-1", "Module")
	if !r.Close("user:tab", s.ID()) {
		t.Fatal("expected close to remove session")
	}

	if _, err := r.Attach(s.ID(), sampleQuiz(3)); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryBeginReplacesPreviousSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := r.Begin("user:tab", domain.ContextModule, "mod-1", "Module")
	second := r.Begin("user:tab", domain.ContextVideo, "vid", "Video")

	if first.State() != StateCancelled {
		t.Fatalf("expected first session cancelled, got %s", first.State())
	}
	if _, err := r.Attach(first.ID(), sampleQuiz(1)); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected stale first session, got %v", err)
	}
	if _, err := r.Attach(second.ID(), sampleQuiz(1)); err != nil {
		t.Fatalf("Attach second failed: %v", err)
	}
}

func TestRegistryOwnersAreIsolated(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := r.Begin("alice:tab", domain.ContextModule, "mod-1", "Module")
	r.Begin("bob:tab", domain.ContextModule, "mod-1", "Module")

	if _, err := r.Get("bob:tab", a.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for foreign owner, got %v", err)
	}
	if r.Close("bob:tab", a.ID()) {
		t.Fatal("foreign owner must not close the session")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Len())
	}
}

func TestRegistryAttachInvalidQuizRemovesSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := r.Begin("user:tab", domain.ContextModule, "mod-1", "Module")
	_, err := r.Attach(s.ID(), domain.Quiz{})
	if !domain.IsGenerationError(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if s.State() != StateFailed || r.Len() != 0 {
		t.Fatalf("expected failed and removed session, state=%s len=%d", s.State(), r.Len())
	}
}

func TestRegistrySweepRemovesIdleSessions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	old := r.Begin("a:tab", domain.ContextModule, "mod-1", "Module")
	r.now = func() time.Time { return base.Add(20 * time.Minute) }
	fresh := r.Begin("b:tab", domain.ContextModule, "mod-2", "Module")

	r.now = func() time.Time { return base.Add(35 * time.Minute) }
	if n := r.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
	if old.State() != StateCancelled {
		t.Fatalf("expected idle session cancelled, got %s", old.State())
	}
	if _, err := r.Get("b:tab", fresh.ID()); err != nil {
		t.Fatalf("fresh session removed: %v", err)
	}
}

func TestRegistryCloseCurrentCancelsLoadingSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := r.Begin("user:tab", domain.ContextModule, "mod-1", "Module")
	other := r.Begin("user:other", domain.ContextModule, "mod-1", "Module")

	id, ok := r.CloseCurrent("user:tab")
	if !ok || id != s.ID() {
		t.Fatalf("CloseCurrent = %q, %v; want %q", id, ok, s.ID())
	}
	if s.State() != StateCancelled {
		t.Fatalf("expected cancelled session, got %s", s.State())
	}
	if _, err := r.Attach(s.ID(), sampleQuiz(3)); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
	if _, ok := r.CloseCurrent("user:tab"); ok {
		t.Fatal("expected nothing left to close")
	}
	if other.State() != StateLoading || r.Len() != 1 {
		t.Fatalf("other owner affected: state %s, len %d", other.State(), r.Len())
	}
}
