package progression

import (
	"time"

	"github.com/taskquest/taskquest/pkg/timeutil"
)

// EvaluateStreak returns the streak after a completion at now.
//
// The first completion ever starts a streak of 1. A completion on the same
// calendar day as the last one, or on the day after, extends the streak by
// one; any longer gap restarts it at 1. Repeated completions on one day keep
// incrementing.
func EvaluateStreak(now time.Time, lastTaskDate *time.Time, current int) int {
	if lastTaskDate == nil {
		return 1
	}
	if timeutil.DaysBetween(*lastTaskDate, now) <= 1 {
		return normalize(current) + 1
	}
	return 1
}

// EvaluateStreakOncePerDay is EvaluateStreak with at most one increment per
// calendar day: a second completion on the same day leaves the streak as is.
func EvaluateStreakOncePerDay(now time.Time, lastTaskDate *time.Time, current int) int {
	if lastTaskDate != nil && timeutil.DaysBetween(*lastTaskDate, now) <= 0 {
		if current < 1 {
			return 1
		}
		return current
	}
	return EvaluateStreak(now, lastTaskDate, current)
}

// DecayStreak zeroes a streak whose last completion is older than yesterday.
// It never counts a completion and is safe to apply repeatedly.
func DecayStreak(now time.Time, lastTaskDate *time.Time, current int) int {
	if lastTaskDate == nil {
		return normalize(current)
	}
	if timeutil.DaysBetween(*lastTaskDate, now) >= 2 {
		return 0
	}
	return normalize(current)
}

// StreakLapsed reports whether a completion at now would break the streak.
func StreakLapsed(now time.Time, lastTaskDate *time.Time) bool {
	return lastTaskDate != nil && timeutil.DaysBetween(*lastTaskDate, now) >= 2
}

func normalize(streak int) int {
	if streak < 0 {
		return 0
	}
	return streak
}
