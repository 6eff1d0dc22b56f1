package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestEvaluateStreak(t *testing.T) {
	now := day(2024, 6, 10, 9)

	tests := []struct {
		name    string
		last    *time.Time
		current int
		want    int
	}{
		{"first completion", nil, 0, 1},
		{"same day increments again", ptr(day(2024, 6, 10, 8)), 3, 4},
		{"yesterday late evening", ptr(day(2024, 6, 9, 23)), 3, 4},
		{"two days ago restarts", ptr(day(2024, 6, 8, 23)), 5, 1},
		{"long gap restarts", ptr(day(2024, 1, 1, 12)), 40, 1},
		{"decayed streak continues from zero", ptr(day(2024, 6, 9, 12)), 0, 1},
		{"future last date counts as recent", ptr(day(2024, 6, 11, 12)), 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateStreak(now, tt.last, tt.current))
		})
	}
}

func TestEvaluateStreak_CalendarNotElapsedHours(t *testing.T) {
	// 25 hours apart, but only one calendar day.
	last := day(2024, 6, 9, 0)
	now := last.Add(25 * time.Hour)
	assert.Equal(t, 2, EvaluateStreak(now, &last, 1))

	// 26 hours apart across two midnights.
	last = day(2024, 6, 8, 23)
	now = last.Add(26 * time.Hour)
	assert.Equal(t, 1, EvaluateStreak(now, &last, 1))
}

func TestEvaluateStreak_UsesNowLocation(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*60*60)
	// 20:00 UTC on the 8th is 01:00 on the 9th in UTC+5.
	last := day(2024, 6, 8, 20)
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, plus5)

	assert.Equal(t, 3, EvaluateStreak(now, &last, 2))
	assert.Equal(t, 1, EvaluateStreak(now.UTC().Add(14*time.Hour), &last, 2))
}

func TestEvaluateStreakOncePerDay(t *testing.T) {
	now := day(2024, 6, 10, 18)

	assert.Equal(t, 1, EvaluateStreakOncePerDay(now, nil, 0))
	assert.Equal(t, 3, EvaluateStreakOncePerDay(now, ptr(day(2024, 6, 10, 9)), 3))
	assert.Equal(t, 1, EvaluateStreakOncePerDay(now, ptr(day(2024, 6, 10, 9)), 0))
	assert.Equal(t, 4, EvaluateStreakOncePerDay(now, ptr(day(2024, 6, 9, 9)), 3))
	assert.Equal(t, 1, EvaluateStreakOncePerDay(now, ptr(day(2024, 6, 7, 9)), 3))
}

func TestDecayStreak(t *testing.T) {
	now := day(2024, 6, 10, 0)

	assert.Equal(t, 0, DecayStreak(now, nil, 0))
	assert.Equal(t, 5, DecayStreak(now, ptr(day(2024, 6, 10, 0)), 5))
	assert.Equal(t, 5, DecayStreak(now, ptr(day(2024, 6, 9, 0)), 5))
	assert.Equal(t, 0, DecayStreak(now, ptr(day(2024, 6, 8, 23)), 5))

	// Idempotent.
	last := day(2024, 6, 1, 12)
	once := DecayStreak(now, &last, 7)
	assert.Equal(t, once, DecayStreak(now, &last, once))
}

func TestStreakLapsed(t *testing.T) {
	now := day(2024, 6, 10, 12)
	assert.False(t, StreakLapsed(now, nil))
	assert.False(t, StreakLapsed(now, ptr(day(2024, 6, 9, 0))))
	assert.True(t, StreakLapsed(now, ptr(day(2024, 6, 8, 23))))
}

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 1},
		{10, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{1000, 11},
		{-5, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateLevel(tt.points), "points=%d", tt.points)
	}

	for p := 0; p < 1000; p += 7 {
		assert.Equal(t, p/100+1, CalculateLevel(p))
	}
}

func TestProgressBucket(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0},
		{12, 0},
		{13, 25},
		{30, 25},
		{130, 25},
		{37, 25},
		{38, 50},
		{62, 50},
		{63, 75},
		{87, 75},
		{88, 100},
		{99, 100},
		{100, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProgressBucket(tt.points), "points=%d", tt.points)
	}
}

func TestPointsToNextLevel(t *testing.T) {
	assert.Equal(t, 100, PointsToNextLevel(0))
	assert.Equal(t, 70, PointsToNextLevel(130))
	assert.Equal(t, 1, PointsToNextLevel(99))
}
