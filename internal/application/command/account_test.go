package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/infrastructure/persistence/memory"
)

func TestRegisterUser(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	h := NewRegisterUserHandler(store, nil, pub, nil, bcrypt.MinCost)

	u, err := h.Handle(context.Background(), RegisterUserCommand{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, 0, u.Points)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 0, u.Streak)
	assert.Nil(t, u.LastTaskDate)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))
	assert.Equal(t, 1, pub.count(shared.EventUserRegistered))

	_, err = h.Handle(context.Background(), RegisterUserCommand{Username: "alice", Password: "another1"})
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)

	// 50 characters, 100 bytes.
	wide, err := h.Handle(context.Background(), RegisterUserCommand{Username: strings.Repeat("ü", 50), Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 50), wide.Username)
}

func TestRegisterUser_Validation(t *testing.T) {
	h := NewRegisterUserHandler(memory.NewStore(), nil, nil, nil, bcrypt.MinCost)

	tests := []struct {
		name string
		cmd  RegisterUserCommand
		want string
	}{
		{"missing username", RegisterUserCommand{Password: "secret123"}, "username is required"},
		{"long username", RegisterUserCommand{Username: strings.Repeat("a", 81), Password: "secret123"}, "username must be at most 80"},
		{"short password", RegisterUserCommand{Username: "bob", Password: "123"}, "password must be at least 6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSessionHandler_LoginLogout(t *testing.T) {
	store := memory.NewStore()
	sessions := memory.NewSessionStore(nil)
	_, err := NewRegisterUserHandler(store, nil, nil, nil, bcrypt.MinCost).
		Handle(context.Background(), RegisterUserCommand{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	h := NewSessionHandler(store, sessions, time.Hour, nil)
	ctx := context.Background()

	res, err := h.Login(ctx, LoginCommand{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice", res.User.Username)

	userID, err := h.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	require.NoError(t, h.Logout(ctx, res.Token))
	_, err = h.Resolve(ctx, res.Token)
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestSessionHandler_BadCredentialsLookTheSame(t *testing.T) {
	store := memory.NewStore()
	_, err := NewRegisterUserHandler(store, nil, nil, nil, bcrypt.MinCost).
		Handle(context.Background(), RegisterUserCommand{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	h := NewSessionHandler(store, memory.NewSessionStore(nil), time.Hour, nil)

	_, wrongPass := h.Login(context.Background(), LoginCommand{Username: "alice", Password: "nope-nope"})
	_, unknown := h.Login(context.Background(), LoginCommand{Username: "ghost", Password: "secret123"})

	assert.ErrorIs(t, wrongPass, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, shared.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestAddTask(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "alice")
	h := NewAddTaskHandler(f.store, f.clock.Now, f.publisher, nil)

	tk, err := h.Handle(context.Background(), AddTaskCommand{UserID: u.ID, Title: "Write docs", DueDate: "2024-06-20"})
	require.NoError(t, err)
	assert.Equal(t, 10, tk.Points)
	require.NotNil(t, tk.DueDate)
	assert.Equal(t, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), *tk.DueDate)
	assert.Equal(t, 1, f.publisher.count(shared.EventTaskCreated))

	tk, err = h.Handle(context.Background(), AddTaskCommand{UserID: u.ID, Title: "Big one", Points: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, tk.Points)
	assert.Nil(t, tk.DueDate)

	tk, err = h.Handle(context.Background(), AddTaskCommand{UserID: u.ID, Title: strings.Repeat("é", 60)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 60), tk.Title)
}

func TestAddTask_InvalidInputStoresNothing(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "alice")
	h := NewAddTaskHandler(f.store, f.clock.Now, nil, nil)

	cases := []AddTaskCommand{
		{UserID: u.ID, Title: "t", DueDate: "20/06/2024"},
		{UserID: u.ID, Title: ""},
		{UserID: u.ID, Title: strings.Repeat("x", 101)},
		{UserID: u.ID, Title: "t", Description: strings.Repeat("x", 501)},
		{UserID: u.ID, Title: "t", Points: -1},
	}
	for _, cmd := range cases {
		_, err := h.Handle(context.Background(), cmd)
		assert.True(t, shared.IsValidation(err), "cmd=%+v err=%v", cmd, err)
	}

	_, err := h.Handle(context.Background(), AddTaskCommand{UserID: shared.NewID(), Title: "orphan"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	require.NoError(t, f.store.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		list, err := r.Tasks.ListByOwner(ctx, u.ID)
		assert.Empty(t, list)
		return err
	}))
}

func TestSeedBadges_IsIdempotent(t *testing.T) {
	store := memory.NewStore()
	h := NewSeedBadgesHandler(store, nil)

	created, err := h.Handle(context.Background(), badge.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, len(badge.DefaultCatalog()), created)

	created, err = h.Handle(context.Background(), badge.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		defs, err := r.Badges.ListDefinitions(ctx)
		assert.Len(t, defs, 5)
		return err
	}))
}

// staleLookups hides existing definitions from GetByName, as when another
// seeder commits between the lookup and the insert.
type staleLookups struct{ badge.Repository }

func (staleLookups) GetByName(context.Context, string) (*badge.Badge, error) {
	return nil, shared.ErrBadgeNotFound
}

func TestSeedBadges_LosingTheInsertRaceCreatesNothing(t *testing.T) {
	store := memory.NewStore()
	_, err := NewSeedBadgesHandler(store, nil).Handle(context.Background(), badge.DefaultCatalog())
	require.NoError(t, err)

	racy := &faultyUoW{inner: store, wrap: func(r port.Repos) port.Repos {
		r.Badges = staleLookups{r.Badges}
		return r
	}}
	created, err := NewSeedBadgesHandler(racy, nil).Handle(context.Background(), badge.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, r port.Repos) error {
		defs, err := r.Badges.ListDefinitions(ctx)
		assert.Len(t, defs, 5)
		return err
	}))
}
