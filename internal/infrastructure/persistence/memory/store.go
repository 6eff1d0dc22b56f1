// Package memory implements the entity store in process memory. It backs
// tests and STORE_DRIVER=memory development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
)

// state is one snapshot of all entities. Stored pointers are private to the
// store: repositories copy on the way in and on the way out.
type state struct {
	users      map[string]*user.User
	tasks      map[string]*task.Task
	badges     map[string]*badge.Badge
	userBadges map[string][]*badge.UserBadge // userID -> facts
}

func newState() *state {
	return &state{
		users:      make(map[string]*user.User),
		tasks:      make(map[string]*task.Task),
		badges:     make(map[string]*badge.Badge),
		userBadges: make(map[string][]*badge.UserBadge),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.badges {
		c.badges[k] = v
	}
	for k, v := range s.userBadges {
		c.userBadges[k] = append([]*badge.UserBadge(nil), v...)
	}
	return c
}

// Store is an in-memory unit of work. Units run one at a time; each works on
// a copy of the state that replaces the committed state only on success.
type Store struct {
	mu      sync.Mutex
	current *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{current: newState()}
}

var _ port.UnitOfWork = (*Store)(nil)

// Do implements port.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r port.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.current.clone()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("memory store: panic in unit of work: %v", p)
		}
	}()

	repos := port.Repos{
		Users:  &userRepo{st: work},
		Tasks:  &taskRepo{st: work},
		Badges: &badgeRepo{st: work},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.current = work
	return nil
}

// Ping implements the health check contract.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

type userRepo struct{ st *state }

func copyUser(u *user.User) *user.User {
	c := *u
	if u.LastTaskDate != nil {
		t := *u.LastTaskDate
		c.LastTaskDate = &t
	}
	return &c
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.st.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return shared.ErrUsernameTaken
		}
	}
	if _, ok := r.st.users[u.ID]; ok {
		return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user id already exists")
	}
	r.st.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Username, username) {
			return copyUser(u), nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *userRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.st.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.st.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) ListLapsedStreaks(_ context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for id, u := range r.st.users {
		if u.Streak > 0 && u.LastTaskDate != nil && u.LastTaskDate.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TASKS
// ══════════════════════════════════════════════════════════════════════════════

type taskRepo struct{ st *state }

func copyTask(t *task.Task) *task.Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletionDate != nil {
		d := *t.CompletionDate
		c.CompletionDate = &d
	}
	return &c
}

func (r *taskRepo) Create(_ context.Context, t *task.Task) error {
	if _, ok := r.st.tasks[t.ID]; ok {
		return shared.NewDomainError("task", "Create", shared.ErrAlreadyExists, "task id already exists")
	}
	if _, ok := r.st.users[t.UserID]; !ok {
		return shared.ErrUserNotFound
	}
	r.st.tasks[t.ID] = copyTask(t)
	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id string) (*task.Task, error) {
	t, ok := r.st.tasks[id]
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (r *taskRepo) GetForUpdate(ctx context.Context, id string) (*task.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *taskRepo) ListByOwner(_ context.Context, userID string) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.st.tasks {
		if t.UserID == userID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *taskRepo) Update(_ context.Context, t *task.Task) error {
	if _, ok := r.st.tasks[t.ID]; !ok {
		return shared.ErrTaskNotFound
	}
	r.st.tasks[t.ID] = copyTask(t)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

type badgeRepo struct{ st *state }

func (r *badgeRepo) ListDefinitions(_ context.Context) ([]*badge.Badge, error) {
	out := make([]*badge.Badge, 0, len(r.st.badges))
	for _, b := range r.st.badges {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Requirement != out[j].Requirement {
			return out[i].Requirement < out[j].Requirement
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *badgeRepo) GetByName(_ context.Context, name string) (*badge.Badge, error) {
	for _, b := range r.st.badges {
		if b.Name == name {
			c := *b
			return &c, nil
		}
	}
	return nil, shared.ErrBadgeNotFound
}

func (r *badgeRepo) CreateDefinition(_ context.Context, b *badge.Badge) (bool, error) {
	if _, ok := r.st.badges[b.ID]; ok {
		return false, shared.NewDomainError("badge", "Create", shared.ErrAlreadyExists, "badge already exists")
	}
	for _, existing := range r.st.badges {
		if existing.Name == b.Name {
			return false, nil
		}
	}
	c := *b
	r.st.badges[b.ID] = &c
	return true, nil
}

func (r *badgeRepo) ListEarned(_ context.Context, userID string) ([]*badge.UserBadge, error) {
	facts := r.st.userBadges[userID]
	out := make([]*badge.UserBadge, 0, len(facts))
	for _, ub := range facts {
		c := *ub
		out = append(out, &c)
	}
	return out, nil
}

func (r *badgeRepo) Award(_ context.Context, ub *badge.UserBadge) (bool, error) {
	if _, ok := r.st.badges[ub.BadgeID]; !ok {
		return false, shared.ErrBadgeNotFound
	}
	for _, existing := range r.st.userBadges[ub.UserID] {
		if existing.BadgeID == ub.BadgeID {
			return false, nil
		}
	}
	c := *ub
	r.st.userBadges[ub.UserID] = append(r.st.userBadges[ub.UserID], &c)
	return true, nil
}
