package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func TestRegister(t *testing.T) {
	s := New(Config{})
	job := funcJob{name: "a", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
}

func TestFailuresAndPanicsAreReported(t *testing.T) {
	results := make(chan JobResult, 16)
	s := New(Config{
		TickInterval:  2 * time.Millisecond,
		OnJobComplete: func(r JobResult) { results <- r },
	})

	boom := errors.New("boom")
	require.NoError(t, s.Register(funcJob{name: "fail", run: func(context.Context) error { return boom }}, Every(time.Hour)))
	require.NoError(t, s.Register(funcJob{name: "panic", run: func(context.Context) error { panic("bad") }}, Every(time.Hour)))

	// Every(time.Hour) is not due until an hour after registration.
	s.mu.Lock()
	for _, sj := range s.jobs {
		sj.nextRun = time.Time{}
	}
	s.mu.Unlock()

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	got := make(map[string]JobResult)
	for len(got) < 2 {
		select {
		case r := <-results:
			got[r.JobName] = r
		case <-time.After(time.Second):
			t.Fatalf("only %d of 2 jobs reported", len(got))
		}
	}

	assert.ErrorIs(t, got["fail"].Error, boom)
	assert.False(t, got["fail"].Success())
	assert.ErrorContains(t, got["panic"].Error, "job panicked")
	assert.GreaterOrEqual(t, got["panic"].Duration, time.Duration(0))
}

func TestStartRunsDueJobs(t *testing.T) {
	var runs atomic.Int32
	s := New(Config{TickInterval: 5 * time.Millisecond})
	require.NoError(t, s.Register(funcJob{name: "tick", run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestJobsDoNotOverlap(t *testing.T) {
	var (
		active  atomic.Int32
		overlap atomic.Bool
		started sync.Once
		first   = make(chan struct{})
	)
	s := New(Config{TickInterval: 2 * time.Millisecond})
	require.NoError(t, s.Register(funcJob{name: "slow", run: func(ctx context.Context) error {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		defer active.Add(-1)
		started.Do(func() { close(first) })
		select {
		case <-ctx.Done():
		case <-time.After(30 * time.Millisecond):
		}
		return nil
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	<-first
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.False(t, overlap.Load())
}

func TestStopCancelsRunningJob(t *testing.T) {
	var startOnce, cancelOnce sync.Once
	started := make(chan struct{})
	cancelled := make(chan struct{})
	s := New(Config{TickInterval: 2 * time.Millisecond})
	require.NoError(t, s.Register(funcJob{name: "block", run: func(ctx context.Context) error {
		startOnce.Do(func() { close(started) })
		<-ctx.Done()
		cancelOnce.Do(func() { close(cancelled) })
		return ctx.Err()
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job never started")
	}

	require.NoError(t, s.Stop())
	select {
	case <-cancelled:
	default:
		t.Fatal("job did not observe cancellation")
	}
}

func TestDailySchedule(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	sched, err := ParseDaily("00:05", loc)
	require.NoError(t, err)
	assert.Equal(t, "@daily 00:05 UTC+5", sched.String())

	before := time.Date(2024, 3, 10, 0, 1, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 5, 0, 0, loc), sched.Next(before))

	exact := time.Date(2024, 3, 10, 0, 5, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 5, 0, 0, loc), sched.Next(exact))

	// 20:00 UTC on the 10th is already 01:00 on the 11th in UTC+5.
	utc := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	assert.True(t, sched.Next(utc).Equal(time.Date(2024, 3, 12, 0, 5, 0, 0, loc)))

	_, err = ParseDaily("25:00", loc)
	assert.Error(t, err)
	_, err = ParseDaily("noon", loc)
	assert.Error(t, err)
}

func TestIntervalSchedule(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(90*time.Second), Every(90*time.Second).Next(at))
}
