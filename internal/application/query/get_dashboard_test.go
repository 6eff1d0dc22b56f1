package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/memory"
)

type eventLog struct{ events []shared.Event }

func (l *eventLog) Publish(e shared.Event) error {
	l.events = append(l.events, e)
	return nil
}

func seed(t *testing.T, store *memory.Store, points, streak int, last *time.Time) *user.User {
	t.Helper()
	u, err := user.NewUser("alice", "hash", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	u.Points, u.Level, u.Streak, u.LastTaskDate = points, points/100+1, streak, last

	b, err := badge.NewBadge("Beginner", "first 100", 100, badge.KindPoints)
	require.NoError(t, err)
	tk, err := task.NewTask(u.ID, "read", "", nil, 10, u.CreatedAt)
	require.NoError(t, err)

	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		if err := r.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := r.Tasks.Create(ctx, tk); err != nil {
			return err
		}
		if _, err := r.Badges.CreateDefinition(ctx, b); err != nil {
			return err
		}
		if points >= 100 {
			_, err := r.Badges.Award(ctx, badge.NewUserBadge(u.ID, b.ID, u.CreatedAt))
			return err
		}
		return nil
	}))
	return u
}

func TestGetDashboard_ViewAndBucket(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-2 * time.Hour)
	u := seed(t, store, 130, 3, &last)

	h := NewGetDashboardHandler(store, func() time.Time { return now }, nil, nil, nil)
	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: u.ID})
	require.NoError(t, err)

	assert.Equal(t, 130, dto.User.Points)
	assert.Equal(t, 2, dto.User.Level)
	assert.Equal(t, 3, dto.User.Streak)
	assert.Equal(t, 25, dto.ProgressBucket)
	assert.Equal(t, 70, dto.PointsToNextLevel)
	require.Len(t, dto.Tasks, 1)
	assert.Equal(t, "read", dto.Tasks[0].Title)
	require.Len(t, dto.Badges, 1)
	assert.Equal(t, "Beginner", dto.Badges[0].Name)
}

func TestGetDashboard_DecaysStaleStreakAndPersists(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 6, 10, 0, 30, 0, 0, time.UTC)
	last := time.Date(2024, 6, 8, 23, 59, 0, 0, time.UTC)
	u := seed(t, store, 40, 5, &last)
	events := &eventLog{}

	h := NewGetDashboardHandler(store, func() time.Time { return now }, events, nil, nil)
	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, dto.User.Streak)
	require.Len(t, events.events, 1)
	assert.Equal(t, shared.EventStreakReset, events.events[0].EventType())

	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		stored, err := r.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Streak)
		assert.Equal(t, 40, stored.Points)
		return nil
	}))

	// A second read changes nothing and emits nothing.
	_, err = h.Handle(context.Background(), GetDashboardQuery{UserID: u.ID})
	require.NoError(t, err)
	assert.Len(t, events.events, 1)
}

func TestGetDashboard_YesterdayKeepsStreak(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 9, 0, 1, 0, 0, time.UTC)
	u := seed(t, store, 40, 5, &last)

	h := NewGetDashboardHandler(store, func() time.Time { return now }, nil, nil, nil)
	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, dto.User.Streak)
}

func TestGetDashboard_DecayToggleOff(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -5)
	u := seed(t, store, 40, 5, &last)

	h := NewGetDashboardHandler(store, func() time.Time { return now }, nil, nil, func(string) bool { return false })
	dto, err := h.Handle(context.Background(), GetDashboardQuery{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, dto.User.Streak)
}

func TestGetDashboard_UnknownUser(t *testing.T) {
	h := NewGetDashboardHandler(memory.NewStore(), nil, nil, nil, nil)

	_, err := h.Handle(context.Background(), GetDashboardQuery{UserID: shared.NewID()})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	_, err = h.Handle(context.Background(), GetDashboardQuery{})
	assert.True(t, shared.IsNotFound(err))
}
