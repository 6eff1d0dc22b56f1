package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/infrastructure/messaging"
)

func TestMetrics_EventDriven(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	require.NoError(t, m.Subscribe(bus))

	now := time.Now()
	events := []shared.Event{
		shared.NewUserRegisteredEvent("u1", "alice", now),
		shared.NewTaskCreatedEvent("u1", "t1", 30, now),
		shared.NewTaskCompletedEvent("u1", "t1", 30, now),
		shared.NewPointsAwardedEvent("u1", 30, 120, now),
		shared.NewLevelUpEvent("u1", 1, 2, now),
		shared.NewBadgeEarnedEvent("u1", "b1", "Beginner", now),
		shared.NewStreakResetEvent("u1", 3, shared.StreakResetOnDecay, now),
		shared.NewStreakResetEvent("u1", 1, shared.StreakResetOnCompletion, now),
	}
	for _, e := range events {
		require.NoError(t, bus.Publish(e))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegisteredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksCompletedTotal))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.PointsAwardedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LevelUpsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadgesAwardedTotal.WithLabelValues("Beginner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreakResetsTotal.WithLabelValues("decay")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreakResetsTotal.WithLabelValues("completion")))
}

func TestMetrics_Observers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CompletionConflict()
	m.CompletionConflict()
	m.CompletionDuration(15 * time.Millisecond)
	m.ObserveRequest("POST", "/api/v1/tasks/{id}/complete", 200, time.Millisecond)
	m.ObserveJob("decay_streaks", nil, time.Second)
	m.ObserveJob("decay_streaks", errors.New("db down"), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CompletionConflictsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CompleteTaskDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/tasks/{id}/complete", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("decay_streaks", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("decay_streaks", "failure")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CompletionConflict()
		m.CompletionDuration(time.Second)
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
		m.ObserveJob("decay_streaks", nil, time.Second)
	})
}

func TestNew_UnregisteredWithNilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}
