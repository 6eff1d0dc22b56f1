package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/circuitbreaker"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	client, err := NewClient(context.Background(), Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(client)
}

func TestConfig_Options(t *testing.T) {
	opts, err := Config{URL: "redis://:secret@cache:6380/2", PoolSize: 7}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = DefaultConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = Config{URL: "://bad"}.Options()
	assert.Error(t, err)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	s := newTestSessionStore(t)
	ctx := context.Background()

	token, err := s.Create(ctx, "user-1", time.Minute)
	require.NoError(t, err)

	userID, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, s.Delete(ctx, token))
	_, err = s.Resolve(ctx, token)
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)

	assert.NoError(t, s.Delete(ctx, "unknown"))
}

func TestSessionStore_Expiry(t *testing.T) {
	s := newTestSessionStore(t)
	ctx := context.Background()

	token, err := s.Create(ctx, "user-2", 50*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := s.Resolve(ctx, token)
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)

	_, err = s.Create(ctx, "user-2", 0)
	assert.Error(t, err)
}

func TestSessionStore_BreakerFailsFast(t *testing.T) {
	// Nothing listens on port 1, so every round trip fails immediately.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	s := NewSessionStore(client, WithBreaker(NewSessionBreaker(
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithTimeout(time.Hour),
	)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Resolve(ctx, "token")
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrServiceUnavailable)
	}

	_, err := s.Resolve(ctx, "token")
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

	_, err = s.Create(ctx, "user-1", time.Minute)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}
