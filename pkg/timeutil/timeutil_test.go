package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween_UsesCalendarDates(t *testing.T) {
	late := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2024, 3, 11, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(late, early))
	assert.Equal(t, -1, DaysBetween(early, late))
	assert.Equal(t, 0, DaysBetween(early, early.Add(20*time.Hour)))
}

func TestDaysBetween_ConvertsIntoTargetLocation(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)

	// 20:00 UTC on the 10th is already the 11th in UTC+5.
	last := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, almaty)

	assert.Equal(t, 0, DaysBetween(last, now))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST starts 2024-03-10 in New York; that day has 23 hours.
	before := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	after := time.Date(2024, 3, 11, 0, 30, 0, 0, ny)

	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestDaysBetween_AcrossYearBoundary(t *testing.T) {
	d1 := time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(d1, d2))
	assert.Equal(t, -1, DaysBetween(d2, d1))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-02-14", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("14/02/2025", time.UTC)
	assert.Error(t, err)
}

func TestClocks(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, FixedClock(fixed)())

	loc := time.FixedZone("X", 3*60*60)
	assert.Equal(t, loc, SystemClock(loc)().Location())
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}
