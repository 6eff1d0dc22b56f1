package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

type session struct {
	userID    string
	expiresAt time.Time
}

// SessionStore keeps login sessions in process memory. It is used when
// Redis is disabled; sessions do not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	clock    timeutil.Clock
}

var _ port.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates an empty session store. A nil clock reads the
// wall clock.
func NewSessionStore(clock timeutil.Clock) *SessionStore {
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	return &SessionStore{sessions: make(map[string]session), clock: clock}
}

// Create implements port.SessionStore.
func (s *SessionStore) Create(_ context.Context, userID string, ttl time.Duration) (string, error) {
	token := shared.NewID()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session{userID: userID, expiresAt: s.clock().Add(ttl)}
	return token, nil
}

// Resolve implements port.SessionStore. Expired sessions are dropped lazily.
func (s *SessionStore) Resolve(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", shared.ErrSessionNotFound
	}
	if !s.clock().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return "", shared.ErrSessionNotFound
	}
	return sess.userID, nil
}

// Delete implements port.SessionStore.
func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Ping implements the health check contract.
func (s *SessionStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
