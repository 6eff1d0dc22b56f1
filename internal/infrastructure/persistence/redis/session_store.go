package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/circuitbreaker"
)

// SessionStore keeps login sessions as "session:<token>" keys holding the
// user ID. Expiry is delegated to the key TTL.
//
// With a breaker attached, repeated Redis failures make every call fail
// fast with shared.ErrServiceUnavailable until the breaker lets a trial call through.
type SessionStore struct {
	client  redis.UniversalClient
	breaker *circuitbreaker.CircuitBreaker
}

var _ port.SessionStore = (*SessionStore)(nil)

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithBreaker guards every Redis round trip with cb.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) SessionStoreOption {
	return func(s *SessionStore) { s.breaker = cb }
}

// NewSessionStore creates a session store over client.
func NewSessionStore(client redis.UniversalClient, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionBreaker returns a breaker that ignores cache misses and caller
// cancellation.
func NewSessionBreaker(opts ...circuitbreaker.Option) *circuitbreaker.CircuitBreaker {
	base := []circuitbreaker.Option{
		circuitbreaker.WithFailureThreshold(5),
		circuitbreaker.WithTimeout(10 * time.Second),
		circuitbreaker.WithSuccessThreshold(2),
		circuitbreaker.WithMaxHalfOpenRequests(1),
		circuitbreaker.WithIsFailure(func(err error) bool {
			return !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled)
		}),
	}
	return circuitbreaker.New("redis_sessions", append(base, opts...)...)
}

func (s *SessionStore) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	err := s.breaker.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return shared.WrapError("session", op, shared.ErrServiceUnavailable, "session store unavailable", err)
	}
	return err
}

// Create implements port.SessionStore.
func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("redis: session ttl must be positive, got %s", ttl)
	}

	token := shared.NewID()
	var ok bool
	err := s.call(ctx, "Create", func(ctx context.Context) error {
		var err error
		ok, err = s.client.SetNX(ctx, SessionKey(token), userID, ttl).Result()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("redis: create session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("redis: session token collision")
	}
	return token, nil
}

// Resolve implements port.SessionStore.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", shared.ErrSessionNotFound
	}

	var userID string
	err := s.call(ctx, "Resolve", func(ctx context.Context) error {
		var err error
		userID, err = s.client.Get(ctx, SessionKey(token)).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shared.ErrSessionNotFound
		}
		return "", fmt.Errorf("redis: resolve session: %w", err)
	}
	return userID, nil
}

// Delete implements port.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.call(ctx, "Delete", func(ctx context.Context) error {
		return s.client.Del(ctx, SessionKey(token)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
