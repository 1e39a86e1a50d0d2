// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// Repository defines the interface for persisting learners and their state.
type Repository interface {
	// GetUser retrieves a user by their user ID. A missing user is (nil, nil).
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetState reads one per-user entry. ok is false when the key is absent.
	GetState(ctx context.Context, userID, key string) (value string, ok bool, err error)

	// PutState creates or replaces one per-user entry.
	PutState(ctx context.Context, userID, key, value string) error

	// DeleteState removes one per-user entry. Missing keys are not an error.
	DeleteState(ctx context.Context, userID, key string) error

	// DeleteAllState removes every entry for a user.
	DeleteAllState(ctx context.Context, userID string) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
