// Package scheduler runs background jobs on fixed schedules. The server uses
// it for the nightly streak decay sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskquest/taskquest/pkg/logger"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

var (
	ErrNilJob                  = errors.New("scheduler: job is nil")
	ErrNilSchedule             = errors.New("scheduler: schedule is nil")
	ErrJobAlreadyExists        = errors.New("scheduler: job already registered")
	ErrSchedulerAlreadyRunning = errors.New("scheduler: already running")
	ErrSchedulerNotRunning     = errors.New("scheduler: not running")
)

// Job is a unit of background work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Run executes the job. The context is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	// Next returns the first run time strictly after t.
	Next(t time.Time) time.Time

	String() string
}

// JobResult describes one execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Error       error
}

// Success reports whether the job returned without error.
func (r JobResult) Success() bool { return r.Error == nil }

// Config configures a Scheduler.
type Config struct {
	Logger *zap.Logger

	// Clock supplies the current time. Defaults to the UTC system clock.
	Clock timeutil.Clock

	// TickInterval is how often due jobs are checked. Defaults to 1s.
	TickInterval time.Duration

	// OnJobComplete is called after every execution.
	OnJobComplete func(JobResult)
}

type scheduledJob struct {
	job      Job
	schedule Schedule
	running  bool
	nextRun  time.Time
}

// Scheduler runs registered jobs when their schedule says they are due.
// A job never overlaps with itself; a tick that finds it still running
// skips it and the next run is computed from the skipped time.
type Scheduler struct {
	mu sync.Mutex

	logger        *zap.Logger
	clock         timeutil.Clock
	tick          time.Duration
	onJobComplete func(JobResult)

	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock(time.UTC)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Scheduler{
		logger:        cfg.Logger.With(logger.Component("scheduler")),
		clock:         cfg.Clock,
		tick:          cfg.TickInterval,
		onJobComplete: cfg.OnJobComplete,
		jobs:          make(map[string]*scheduledJob),
	}
}

// Register adds a job. Its first run is schedule.Next(now).
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, schedule: schedule, nextRun: schedule.Next(s.clock())}
	s.jobs[name] = sj

	s.logger.Info("job registered",
		zap.String("job", name),
		zap.String("schedule", schedule.String()),
		zap.Time("next_run", sj.nextRun),
	)
	return nil
}

// Start launches the scheduling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))

	s.wg.Add(1)
	go s.runLoop(s.ctx)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

// dispatchDue advances nextRun under the lock before spawning, so a slow
// job cannot be picked up twice.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, sj := range s.jobs {
		if now.Before(sj.nextRun) {
			continue
		}
		sj.nextRun = sj.schedule.Next(now)
		if sj.running {
			s.logger.Warn("job still running, skipping", zap.String("job", name))
			continue
		}
		sj.running = true

		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()
			s.runJob(ctx, sj)
		}(sj)
	}
}

func (s *Scheduler) runJob(ctx context.Context, sj *scheduledJob) {
	name := sj.job.Name()
	log := s.logger.With(zap.String("job", name))
	log.Info("job started")

	started := time.Now()
	err := s.safeRun(ctx, sj.job)
	result := JobResult{
		JobName:     name,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Error:       err,
	}
	result.Duration = result.CompletedAt.Sub(started)

	s.mu.Lock()
	sj.running = false
	s.mu.Unlock()

	if err != nil {
		log.Error("job failed", logger.Latency(result.Duration), zap.Error(err))
	} else {
		log.Info("job completed", logger.Latency(result.Duration))
	}

	if s.onJobComplete != nil {
		s.onJobComplete(result)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
