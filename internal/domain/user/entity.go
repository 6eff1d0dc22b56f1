// Package user contains the User aggregate: identity plus the progression
// state (points, level, streak) that task completions advance.
package user

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskquest/taskquest/internal/domain/progression"
	"github.com/taskquest/taskquest/internal/domain/shared"
)

// MaxUsernameLength bounds usernames at registration, in characters.
const MaxUsernameLength = 80

// User is an account together with its progression state.
// Level always equals progression.CalculateLevel(Points).
type User struct {
	ID           string
	Username     string
	PasswordHash string

	Points int
	Level  int
	Streak int

	// Date of the most recent completion; nil before the first one.
	LastTaskDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user with zero progress.
func NewUser(username, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.Validation("user", "Create", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, shared.Validation("user", "Create", "username is too long")
	}
	if passwordHash == "" {
		return nil, shared.Validation("user", "Create", "password is required")
	}

	return &User{
		ID:           shared.NewID(),
		Username:     username,
		PasswordHash: passwordHash,
		Points:       0,
		Level:        progression.CalculateLevel(0),
		Streak:       0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// StreakRule computes the next streak for a completion.
type StreakRule func(now time.Time, lastTaskDate *time.Time, current int) int

// CompletionOutcome describes how one completion changed the user.
type CompletionOutcome struct {
	PointsAdded    int
	PreviousLevel  int
	PreviousStreak int

	// StreakReset is set when a lapsed streak was restarted at 1.
	StreakReset bool
}

// LeveledUp reports whether the completion crossed a level boundary.
func (o CompletionOutcome) LeveledUp(u *User) bool {
	return u.Level > o.PreviousLevel
}

// RecordCompletion applies a completed task worth points at time at.
// A nil rule uses progression.EvaluateStreak.
func (u *User) RecordCompletion(points int, at time.Time, rule StreakRule) (CompletionOutcome, error) {
	if points <= 0 {
		return CompletionOutcome{}, shared.ErrInvalidPoints
	}
	if rule == nil {
		rule = progression.EvaluateStreak
	}

	out := CompletionOutcome{
		PointsAdded:    points,
		PreviousLevel:  u.Level,
		PreviousStreak: u.Streak,
		StreakReset:    u.Streak > 0 && progression.StreakLapsed(at, u.LastTaskDate),
	}

	u.Points += points
	u.Level = progression.CalculateLevel(u.Points)
	u.Streak = rule(at, u.LastTaskDate, u.Streak)

	last := at
	u.LastTaskDate = &last
	u.UpdatedAt = at

	return out, nil
}

// ApplyDecay zeroes a stale streak. It returns the previous streak and
// whether anything changed.
func (u *User) ApplyDecay(now time.Time) (int, bool) {
	previous := u.Streak
	next := progression.DecayStreak(now, u.LastTaskDate, u.Streak)
	if next == previous {
		return previous, false
	}
	u.Streak = next
	u.UpdatedAt = now
	return previous, true
}

// ProgressBucket returns the within-level progress snapped to a quarter.
func (u *User) ProgressBucket() int {
	return progression.ProgressBucket(u.Points)
}
