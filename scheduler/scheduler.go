package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/tokenflow/analytics"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/util"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobExecutionError is a failed attempt at running a job.
type JobExecutionError struct {
	JobId string
	Err   error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.JobId, e.Err)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// Metrics receives job outcome counts.
type Metrics interface {
	JobExecuted(kind string)
	JobFailed(kind string)
	JobDeadLettered(kind string)
}

type noopMetrics struct{}

func (noopMetrics) JobExecuted(string)     {}
func (noopMetrics) JobFailed(string)       {}
func (noopMetrics) JobDeadLettered(string) {}

type Config struct {
	PollInterval time.Duration
	Retry        RetryPolicy
}

type Option func(*Scheduler)

func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler polls the job store for due jobs and runs them one at a time
// through the dispatcher.
type Scheduler struct {
	store      persistence.JobStore
	dispatcher dispatch.Dispatcher
	sink       analytics.EventSink
	conf       Config
	metrics    Metrics
	now        func() time.Time
	tw         *util.TickWorker
}

func New(conf Config, store persistence.JobStore, dispatcher dispatch.Dispatcher, sink analytics.EventSink, opts ...Option) *Scheduler {
	if conf.PollInterval <= 0 {
		conf.PollInterval = time.Second
	}
	s := &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		sink:       sink,
		conf:       conf,
		metrics:    noopMetrics{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	tw := util.NewTickWorker("job-scheduler", s.conf.PollInterval, s.poll, &sync.WaitGroup{})
	logger.Info("job scheduler running", zap.Duration("pollInterval", s.conf.PollInterval))
	tw.Run(ctx)
}

// Start runs the poll loop in the background, tracked by wg.
func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) {
	s.tw = util.NewTickWorker("job-scheduler", s.conf.PollInterval, s.poll, wg)
	s.tw.Start(ctx)
}

func (s *Scheduler) Stop() {
	if s.tw != nil {
		s.tw.Stop()
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	if err := s.Tick(ctx); err != nil {
		logger.Error("error while polling due jobs", zap.Error(err))
	}
}

// Tick runs every due job once inside a single store scope.
func (s *Scheduler) Tick(ctx context.Context) error {
	scope, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	jobs, err := scope.Due(ctx, now)
	if err != nil {
		scope.Rollback(ctx)
		return err
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			logger.Info("tick cancelled before all due jobs ran", zap.Int("due", len(jobs)))
			break
		}
		if err := s.execute(ctx, scope, job, now); err != nil {
			logger.Warn("job attempt failed", zap.Error(err))
		}
	}
	// outcomes already emitted must be stored even when ctx was cancelled mid tick
	return scope.Commit(context.WithoutCancel(ctx))
}

func (s *Scheduler) execute(ctx context.Context, scope persistence.JobScope, job *model.Job, now time.Time) error {
	logger.Info("executing job", zap.String("job", job.Id), zap.String("kind", job.Kind), zap.String("instance", job.InstanceRef), zap.Int("retryCount", job.RetryCount))
	job.State = model.JOB_RUNNING
	err := s.dispatcher.Dispatch(ctx, requestFor(job))
	if err == nil {
		if err := s.completed(ctx, scope, job, now); err != nil {
			return err
		}
		s.metrics.JobExecuted(job.Kind)
		s.emit(ctx, model.EVENT_JOB_EXECUTED, job, nil)
		return nil
	}

	job.RetryCount++
	job.LastError = err.Error()
	s.metrics.JobFailed(job.Kind)
	s.emit(ctx, model.EVENT_JOB_FAILED, job, map[string]any{"error": job.LastError})
	if s.conf.Retry.Exhausted(job.RetryCount) {
		job.State = model.JOB_DEAD_LETTERED
		if serr := scope.DeadLetter(ctx, job); serr != nil {
			return serr
		}
		s.metrics.JobDeadLettered(job.Kind)
		s.emit(ctx, model.EVENT_JOB_DEAD_LETTERED, job, map[string]any{"error": job.LastError})
	} else {
		job.State = model.JOB_FAILED
		job.DueAt = now.Add(s.conf.Retry.Delay(job.RetryCount))
		if serr := scope.Save(ctx, job); serr != nil {
			return serr
		}
	}
	return &JobExecutionError{JobId: job.Id, Err: err}
}

// completed removes a finished job, or moves a cyclic one to its next occurrence.
func (s *Scheduler) completed(ctx context.Context, scope persistence.JobScope, job *model.Job, now time.Time) error {
	if job.Cycle == "" {
		return scope.Remove(ctx, job.Id)
	}
	sched, err := cron.ParseStandard(job.Cycle)
	if err != nil {
		logger.Error("invalid job cycle, removing job", zap.String("job", job.Id), zap.String("cycle", job.Cycle), zap.Error(err))
		return scope.Remove(ctx, job.Id)
	}
	job.State = model.JOB_SCHEDULED
	job.RetryCount = 0
	job.LastError = ""
	job.DueAt = sched.Next(now)
	return scope.Save(ctx, job)
}

func (s *Scheduler) emit(ctx context.Context, t model.EventType, job *model.Job, extra map[string]any) {
	payload := map[string]any{
		"jobId":      job.Id,
		"kind":       job.Kind,
		"retryCount": job.RetryCount,
	}
	for k, v := range extra {
		payload[k] = v
	}
	event := model.Event{
		EventType:   t,
		InstanceRef: job.InstanceRef,
		TenantTag:   job.TenantTag,
		Timestamp:   s.now(),
		Payload:     payload,
	}
	if err := s.sink.Record(ctx, event); err != nil {
		logger.Error("error recording job event", zap.String("event", string(t)), zap.String("job", job.Id), zap.Error(err))
	}
}

// Schedule creates a job from req. A cyclic job with no delay is first due at
// the next occurrence of its cycle.
func (s *Scheduler) Schedule(ctx context.Context, req model.JobScheduleRequest) (*model.Job, error) {
	now := s.now()
	job := &model.Job{
		Id:             uuid.New().String(),
		InstanceRef:    req.InstanceRef,
		Kind:           req.Kind,
		TenantTag:      req.TenantTag,
		State:          model.JOB_SCHEDULED,
		TargetWorkerId: req.TargetWorkerId,
		Attributes:     req.Attributes,
		Payload:        req.Payload,
		Cycle:          req.Cycle,
		CreatedAt:      now,
		DueAt:          now.Add(time.Duration(req.DelaySeconds) * time.Second),
	}
	if job.Kind == "" {
		job.Kind = model.JOB_KIND_TIMER
	}
	if req.DelaySeconds < 0 {
		return nil, fmt.Errorf("delay can not be negative")
	}
	if job.Cycle != "" {
		sched, err := cron.ParseStandard(job.Cycle)
		if err != nil {
			return nil, fmt.Errorf("invalid cycle %q: %w", job.Cycle, err)
		}
		if req.DelaySeconds == 0 {
			job.DueAt = sched.Next(now)
		}
	}
	if err := s.store.Add(ctx, job); err != nil {
		return nil, err
	}
	logger.Info("job scheduled", zap.String("job", job.Id), zap.String("kind", job.Kind), zap.Time("dueAt", job.DueAt))
	return job, nil
}

// requestFor turns a job into the dispatch request that runs it. The
// implementation attribute names the handler; without it the job kind does.
func requestFor(job *model.Job) *model.DispatchRequest {
	key := job.Attributes["implementation"]
	if key == "" {
		key = job.Kind
	}
	variables := make(map[string]any, len(job.Payload))
	for k, v := range job.Payload {
		variables[k] = v
	}
	return &model.DispatchRequest{
		TargetWorkerId:    job.TargetWorkerId,
		ImplementationKey: key,
		InstanceRef:       job.InstanceRef,
		Attributes:        job.Attributes,
		Variables:         variables,
	}
}
