package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, name string) *user.User {
	t.Helper()
	u, err := user.NewUser(name, "hash", now)
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		return r.Users.Create(ctx, u)
	}))
	return u
}

func TestStore_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	u := seedUser(t, s, "alice")

	tk, err := task.NewTask(u.ID, "t", "", nil, 0, now)
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		return r.Tasks.Create(ctx, tk)
	}))

	err = s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		got, err := r.Tasks.GetByID(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, tk.Title, got.Title)

		list, err := r.Tasks.ListByOwner(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_RollsBackOnError(t *testing.T) {
	s := NewStore()
	u := seedUser(t, s, "alice")
	boom := errors.New("boom")

	err := s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		got, err := r.Users.GetForUpdate(ctx, u.ID)
		require.NoError(t, err)
		got.Points = 999
		require.NoError(t, r.Users.Update(ctx, got))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		got, err := r.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Points)
		return nil
	})
}

func TestStore_RecoversPanic(t *testing.T) {
	s := NewStore()
	err := s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		panic("unexpected")
	})
	require.Error(t, err)

	// The store is still usable.
	seedUser(t, s, "bob")
}

func TestStore_ReturnedEntitiesAreCopies(t *testing.T) {
	s := NewStore()
	u := seedUser(t, s, "alice")
	u.Points = 500

	_ = s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		got, err := r.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Points)
		return nil
	})
}

func TestUserRepo_UsernameUniqueCaseInsensitive(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "Alice")

	u, err := user.NewUser("alice", "hash", now)
	require.NoError(t, err)
	err = s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		return r.Users.Create(ctx, u)
	})
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)
}

func TestBadgeRepo_AwardIsIdempotent(t *testing.T) {
	s := NewStore()
	u := seedUser(t, s, "alice")
	b, err := badge.NewBadge("Beginner", "", 100, badge.KindPoints)
	require.NoError(t, err)

	err = s.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		ok, err := r.Badges.CreateDefinition(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)

		created, err := r.Badges.Award(ctx, badge.NewUserBadge(u.ID, b.ID, now))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = r.Badges.Award(ctx, badge.NewUserBadge(u.ID, b.ID, now.Add(time.Hour)))
		require.NoError(t, err)
		assert.False(t, created)

		earned, err := r.Badges.ListEarned(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, earned, 1)
		assert.Equal(t, now, earned[0].EarnedAt)

		_, err = r.Badges.CreateDefinition(ctx, b)
		assert.True(t, shared.IsAlreadyExists(err))

		renamed, err := badge.NewBadge("Beginner", "other", 5, badge.KindPoints)
		require.NoError(t, err)
		ok, err = r.Badges.CreateDefinition(ctx, renamed)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = r.Badges.GetByName(ctx, "Missing")
		assert.True(t, shared.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestStore_HonorsCanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(ctx context.Context, r port.Repos) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSessionStore(t *testing.T) {
	clock := now
	store := NewSessionStore(func() time.Time { return clock })
	ctx := context.Background()

	token, err := store.Create(ctx, "u1", time.Hour)
	require.NoError(t, err)

	got, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	clock = now.Add(2 * time.Hour)
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)

	token, _ = store.Create(ctx, "u1", time.Hour)
	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}
