package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule.
func Every(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: interval}
}

func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DailySchedule runs a job once per calendar day at a wall-clock time in
// Location.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseDaily parses "HH:MM" into a DailySchedule.
func ParseDaily(value string, loc *time.Location) (DailySchedule, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return DailySchedule{}, fmt.Errorf("invalid daily time %q, want HH:MM", value)
	}
	if loc == nil {
		loc = time.UTC
	}
	return DailySchedule{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

func (s DailySchedule) Next(t time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

func (s DailySchedule) String() string {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("@daily %02d:%02d %s", s.Hour, s.Minute, loc)
}
