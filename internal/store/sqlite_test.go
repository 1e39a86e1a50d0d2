package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetUser(missing) = %v, %v; want nil, nil", got, err)
	}

	now := time.Unix(1_700_000_000, 0)
	user := &domain.User{UserID: "u1", DisplayName: "Learner 0001", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	later := now.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "u1", later); err != nil {
		t.Fatalf("UpdateLastSeen: %v", err)
	}

	got, err = s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.DisplayName != "Learner 0001" || !got.LastSeenAt.Equal(later) || !got.CreatedAt.Equal(now) {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestSQLiteState(t *testing.T) {
	testRepositoryState(t, newTestSQLite(t))
}

// testRepositoryState exercises the state operations shared by every
// Repository implementation.
func testRepositoryState(t *testing.T, s Repository) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.GetState(ctx, "u1", domain.StateKeyProgress); err != nil || ok {
		t.Fatalf("GetState on empty store: ok=%v err=%v", ok, err)
	}

	if err := s.PutState(ctx, "u1", domain.StateKeyProgress, `{"xp":10}`); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if err := s.PutState(ctx, "u1", domain.StateKeyProgress, `{"xp":20}`); err != nil {
		t.Fatalf("PutState overwrite: %v", err)
	}
	if err := s.PutState(ctx, "u1", domain.StateKeyGeminiAPIKey, "secret"); err != nil {
		t.Fatalf("PutState key: %v", err)
	}
	if err := s.PutState(ctx, "u2", domain.StateKeyProgress, `{"xp":99}`); err != nil {
		t.Fatalf("PutState other user: %v", err)
	}

	v, ok, err := s.GetState(ctx, "u1", domain.StateKeyProgress)
	if err != nil || !ok || v != `{"xp":20}` {
		t.Fatalf("GetState = %q, %v, %v", v, ok, err)
	}

	if err := s.DeleteState(ctx, "u1", domain.StateKeyGeminiAPIKey); err != nil {
		t.Fatalf("DeleteState: %v", err)
	}
	if _, ok, _ := s.GetState(ctx, "u1", domain.StateKeyGeminiAPIKey); ok {
		t.Error("key still present after DeleteState")
	}
	if err := s.DeleteState(ctx, "u1", "never-set"); err != nil {
		t.Errorf("DeleteState of missing key: %v", err)
	}

	if err := s.DeleteAllState(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAllState: %v", err)
	}
	if _, ok, _ := s.GetState(ctx, "u1", domain.StateKeyProgress); ok {
		t.Error("progress still present after DeleteAllState")
	}
	if v, ok, _ := s.GetState(ctx, "u2", domain.StateKeyProgress); !ok || v != `{"xp":99}` {
		t.Error("DeleteAllState touched another user")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
