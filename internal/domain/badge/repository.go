package badge

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores badge definitions and earned-badge facts.
type Repository interface {
	// ListDefinitions returns the full catalog.
	ListDefinitions(ctx context.Context) ([]*Badge, error)

	// GetByName returns ErrBadgeNotFound when no definition has that name.
	GetByName(ctx context.Context, name string) (*Badge, error)

	// CreateDefinition stores b unless a definition with the same name
	// exists. It reports whether b was written.
	CreateDefinition(ctx context.Context, b *Badge) (bool, error)

	// ListEarned returns the facts for one user, oldest first.
	ListEarned(ctx context.Context, userID string) ([]*UserBadge, error)

	// Award stores the fact unless the user already owns the badge.
	// It reports whether a new fact was written.
	Award(ctx context.Context, ub *UserBadge) (bool, error)
}
