// Package metrics exposes Prometheus collectors for the progression engine.
// Counters are driven by domain events; conflict and latency measurements
// come from the completion orchestrator through port.CompletionObserver.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
)

const namespace = "taskquest"

// Metrics holds Prometheus metrics for the progression engine.
type Metrics struct {
	UsersRegisteredTotal prometheus.Counter
	TasksCreatedTotal    prometheus.Counter
	TasksCompletedTotal  prometheus.Counter
	PointsAwardedTotal   prometheus.Counter
	LevelUpsTotal        prometheus.Counter
	BadgesAwardedTotal   *prometheus.CounterVec
	StreakResetsTotal    *prometheus.CounterVec

	CompletionConflictsTotal prometheus.Counter
	CompleteTaskDuration     prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	JobRunsTotal   *prometheus.CounterVec
	JobRunDuration *prometheus.HistogramVec
}

var _ port.CompletionObserver = (*Metrics)(nil)

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests use.
//
// Metrics:
//   - taskquest_users_registered_total
//   - taskquest_tasks_created_total
//   - taskquest_tasks_completed_total
//   - taskquest_points_awarded_total
//   - taskquest_level_ups_total
//   - taskquest_badges_awarded_total{badge}
//   - taskquest_streak_resets_total{path} - path is "completion" or "decay"
//   - taskquest_completion_conflicts_total
//   - taskquest_complete_task_duration_seconds
//   - taskquest_http_requests_total{method,route,status}
//   - taskquest_http_request_duration_seconds{method,route}
//   - taskquest_job_runs_total{job,result}
//   - taskquest_job_run_duration_seconds{job}
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UsersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Total number of registered users",
		}),
		TasksCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of tasks created",
		}),
		TasksCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks moved to completed",
		}),
		PointsAwardedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Total points credited by task completions",
		}),
		LevelUpsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Total number of level increases",
		}),
		BadgesAwardedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_awarded_total",
			Help:      "Total number of badges awarded",
		}, []string{"badge"}),
		StreakResetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_resets_total",
			Help:      "Total number of streaks that lapsed",
		}, []string{"path"}),
		CompletionConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_conflicts_total",
			Help:      "Total number of completion attempts that lost a race and were retried",
		}),
		CompleteTaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "complete_task_duration_seconds",
			Help:      "Duration of task completion including retries",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total number of background job runs",
		}, []string{"job", "result"}),
		JobRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_run_duration_seconds",
			Help:      "Duration of background job runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~3m
		}, []string{"job"}),
	}
}

// Subscribe attaches the event-driven counters to bus.
func (m *Metrics) Subscribe(bus shared.EventSubscriber) error {
	subscriptions := map[shared.EventType]shared.EventHandler{
		shared.EventUserRegistered: m.onUserRegistered,
		shared.EventTaskCreated:    m.onTaskCreated,
		shared.EventTaskCompleted:  m.onTaskCompleted,
		shared.EventPointsAwarded:  m.onPointsAwarded,
		shared.EventLevelUp:        m.onLevelUp,
		shared.EventBadgeEarned:    m.onBadgeEarned,
		shared.EventStreakReset:    m.onStreakReset,
	}
	for eventType, handler := range subscriptions {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) onUserRegistered(shared.Event) error {
	m.UsersRegisteredTotal.Inc()
	return nil
}

func (m *Metrics) onTaskCreated(shared.Event) error {
	m.TasksCreatedTotal.Inc()
	return nil
}

func (m *Metrics) onTaskCompleted(shared.Event) error {
	m.TasksCompletedTotal.Inc()
	return nil
}

func (m *Metrics) onPointsAwarded(e shared.Event) error {
	if ev, ok := e.(shared.PointsAwardedEvent); ok && ev.Amount > 0 {
		m.PointsAwardedTotal.Add(float64(ev.Amount))
	}
	return nil
}

func (m *Metrics) onLevelUp(shared.Event) error {
	m.LevelUpsTotal.Inc()
	return nil
}

func (m *Metrics) onBadgeEarned(e shared.Event) error {
	if ev, ok := e.(shared.BadgeEarnedEvent); ok {
		m.BadgesAwardedTotal.WithLabelValues(ev.BadgeName).Inc()
	}
	return nil
}

func (m *Metrics) onStreakReset(e shared.Event) error {
	if ev, ok := e.(shared.StreakResetEvent); ok {
		m.StreakResetsTotal.WithLabelValues(ev.Path).Inc()
	}
	return nil
}

// CompletionConflict implements port.CompletionObserver.
func (m *Metrics) CompletionConflict() {
	if m == nil {
		return
	}
	m.CompletionConflictsTotal.Inc()
}

// CompletionDuration implements port.CompletionObserver.
func (m *Metrics) CompletionDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.CompleteTaskDuration.Observe(d.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveJob records one background job run.
func (m *Metrics) ObserveJob(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.JobRunsTotal.WithLabelValues(job, result).Inc()
	m.JobRunDuration.WithLabelValues(job).Observe(d.Seconds())
}
