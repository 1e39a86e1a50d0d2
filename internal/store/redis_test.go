package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// newTestRedis connects to SKILLACC_TEST_REDIS_ADDR on a scratch database,
// skipping the test when it is unset.
func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("SKILLACC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SKILLACC_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return NewRedisWithClient(client)
}

func TestRedisUserRoundTrip(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetUser(missing) = %v, %v; want nil, nil", got, err)
	}

	now := time.Unix(1_700_000_000, 0)
	if err := s.UpsertUser(ctx, &domain.User{UserID: "u1", DisplayName: "Learner 0001", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	later := now.Add(time.Hour)
	if err := s.UpsertUser(ctx, &domain.User{UserID: "u1", DisplayName: "Learner 0002", LastSeenAt: later, CreatedAt: later, UpdatedAt: later}); err != nil {
		t.Fatalf("UpsertUser again: %v", err)
	}

	got, err = s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.DisplayName != "Learner 0002" || !got.CreatedAt.Equal(now) || !got.LastSeenAt.Equal(later) {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestRedisState(t *testing.T) {
	testRepositoryState(t, newTestRedis(t))
}

func TestRedisKeys(t *testing.T) {
	if got := userKey("lrn_1"); got != "skillacc:user:lrn_1" {
		t.Errorf("userKey = %q", got)
	}
	if got := stateKey("lrn_1"); got != "skillacc:state:lrn_1" {
		t.Errorf("stateKey = %q", got)
	}
}
