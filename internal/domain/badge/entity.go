// Package badge defines badge definitions, earned-badge facts and the rule
// that decides which badges a user has newly qualified for.
package badge

import (
	"strings"
	"time"

	"github.com/taskquest/taskquest/internal/domain/shared"
)

// Kind is the progress metric a badge threshold applies to.
type Kind string

const (
	KindPoints Kind = "points"
	KindStreak Kind = "streak"

	// KindTasks is accepted in the catalog but no rule awards it yet.
	KindTasks Kind = "tasks"
)

// IsValid checks whether the kind is a known badge kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindPoints, KindStreak, KindTasks:
		return true
	}
	return false
}

// Badge is a process-wide badge definition.
type Badge struct {
	ID          string
	Name        string
	Description string
	Requirement int
	Kind        Kind
}

// NewBadge creates a badge definition with a fresh ID.
func NewBadge(name, description string, requirement int, kind Kind) (*Badge, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validation("badge", "Create", "badge name is required")
	}
	if requirement < 0 {
		return nil, shared.Validation("badge", "Create", "requirement cannot be negative")
	}
	if !kind.IsValid() {
		return nil, shared.Validation("badge", "Create", "unknown badge kind "+string(kind))
	}

	return &Badge{
		ID:          shared.NewID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Requirement: requirement,
		Kind:        kind,
	}, nil
}

// UserBadge records that a user earned a badge. It is never updated.
type UserBadge struct {
	ID       string
	UserID   string
	BadgeID  string
	EarnedAt time.Time
}

// NewUserBadge creates an earned-badge fact stamped with at.
func NewUserBadge(userID, badgeID string, at time.Time) *UserBadge {
	return &UserBadge{
		ID:       shared.NewID(),
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: at,
	}
}

// EarnedBadge is a UserBadge joined with its definition, for display.
type EarnedBadge struct {
	Badge    Badge
	EarnedAt time.Time
}

// Definition is a catalog entry used for seeding.
type Definition struct {
	Name        string
	Description string
	Requirement int
	Kind        Kind
}

// DefaultCatalog returns the badges seeded into every installation.
func DefaultCatalog() []Definition {
	return []Definition{
		{"Beginner", "Earn your first 100 points", 100, KindPoints},
		{"Intermediate", "Earn 500 points", 500, KindPoints},
		{"Expert", "Earn 1000 points", 1000, KindPoints},
		{"Streak Master", "Maintain a 7-day streak", 7, KindStreak},
		{"Streak Champion", "Maintain a 30-day streak", 30, KindStreak},
	}
}
