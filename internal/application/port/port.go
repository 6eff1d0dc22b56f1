// Package port declares what the application layer needs from the outside:
// a transactional store, a session provider and observers.
package port

import (
	"context"
	"time"

	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
)

// Repos are repositories bound to one unit of work.
type Repos struct {
	Users  user.Repository
	Tasks  task.Repository
	Badges badge.Repository
}

// UnitOfWork runs fn in one transaction. The transaction commits when fn
// returns nil and rolls back on every other exit path, including panics.
// Lost serialization races surface as shared.ErrConcurrentModification.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// SessionStore maps opaque login tokens to user IDs.
type SessionStore interface {
	// Create issues a token that resolves to userID until ttl passes.
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Resolve returns shared.ErrSessionNotFound for unknown or expired tokens.
	Resolve(ctx context.Context, token string) (string, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error
}

// CompletionObserver receives orchestration measurements that are not
// domain events.
type CompletionObserver interface {
	CompletionConflict()
	CompletionDuration(d time.Duration)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) CompletionConflict()              {}
func (NopObserver) CompletionDuration(time.Duration) {}
