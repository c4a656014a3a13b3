// Package scheduler runs background maintenance jobs on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/infrastructure/config"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	// ErrUnknownJobKind is returned by an executor handed a job it does not run.
	ErrUnknownJobKind = errors.New("unknown job kind")
	// ErrReconcileIncomplete marks a reconciliation that left orders without entitlements.
	ErrReconcileIncomplete = errors.New("entitlement reconciliation incomplete")
)

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind selects the executor branch for a job.
type JobKind string

const JobKindReconcileEntitlements JobKind = "RECONCILE_ENTITLEMENTS"

// Job is one unit of background work and its attempt history.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

func NewJob(kind JobKind, maxRetries int) *Job {
	return &Job{ID: uuid.New(), Kind: kind, Status: JobStatusPending, MaxRetries: maxRetries}
}

func (j *Job) mark(status JobStatus, msg string) {
	now := time.Now()
	j.Status = status
	j.Error = msg
	switch status {
	case JobStatusRunning:
		j.StartedAt = &now
	case JobStatusSuccess, JobStatusFailed:
		j.CompletedAt = &now
	}
}

func (j *Job) Start()          { j.mark(JobStatusRunning, "") }
func (j *Job) Complete()       { j.mark(JobStatusSuccess, "") }
func (j *Job) Fail(msg string) { j.mark(JobStatusFailed, msg) }

// ShouldRetry reports whether a failed job still has attempts left.
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry consumes one attempt and puts the job back to pending.
func (j *Job) ScheduleRetry() {
	j.RetryCount++
	j.mark(JobStatusPending, "")
}

type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

type JobExecutorFunc func(ctx context.Context, job *Job) error

func (f JobExecutorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

// Scheduler drains a bounded queue with a fixed number of workers. A failed
// job is re-queued after RetryDelay while it has attempts left.
type Scheduler struct {
	cfg  config.SchedulerConfig
	exec JobExecutor
	log  *zap.Logger

	mu      sync.Mutex
	running bool
	queue   chan *Job
	stop    context.CancelFunc
	wg      sync.WaitGroup
	pending map[uuid.UUID]*time.Timer
}

func NewScheduler(cfg config.SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	cfg.Workers = max(cfg.Workers, 1)
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cfg: cfg, exec: executor, log: logger, pending: map[uuid.UUID]*time.Timer{}}
}

// Start launches the workers. Calling it on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, s.stop = context.WithCancel(ctx)
	s.queue = make(chan *Job, s.cfg.QueueSize)
	s.running = true
	for id := range s.cfg.Workers {
		s.wg.Add(1)
		go s.work(ctx, id, s.queue)
	}

	s.log.Info("Job scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Int("queue_size", s.cfg.QueueSize),
		zap.Duration("job_timeout", s.cfg.JobTimeout),
	)
	return nil
}

// Stop drops pending retries, closes the queue and waits for the workers
// until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	close(s.queue)
	s.stop()
	s.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		s.log.Info("Job scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob enqueues job without blocking.
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.queue <- job:
		s.log.Debug("Job submitted", jobFields(job)...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Submit enqueues a new job of kind with the configured retry budget.
func (s *Scheduler) Submit(kind JobKind) (*Job, error) {
	job := NewJob(kind, s.cfg.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Scheduler) work(ctx context.Context, id int, queue <-chan *Job) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-queue:
			if !ok {
				return
			}
			s.run(ctx, id, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, worker int, job *Job) {
	log := s.log.With(append(jobFields(job), zap.Int("worker_id", worker))...)
	job.Start()
	log.Info("Processing job", zap.Int("attempt", job.RetryCount+1))

	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	err := s.exec.Execute(ctx, job)
	if err == nil {
		job.Complete()
		log.Info("Job completed")
		return
	}

	job.Fail(err.Error())
	log.Error("Job failed", zap.Int("retry_count", job.RetryCount), zap.Error(err))
	if job.ShouldRetry() {
		s.retryLater(job)
	}
}

func (s *Scheduler) retryLater(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	job.ScheduleRetry()
	s.pending[job.ID] = time.AfterFunc(s.cfg.RetryDelay, func() {
		s.mu.Lock()
		delete(s.pending, job.ID)
		s.mu.Unlock()
		if err := s.SubmitJob(job); err != nil {
			s.log.Warn("Retry could not be queued", append(jobFields(job), zap.Error(err))...)
		}
	})
	s.log.Info("Job retry scheduled", append(jobFields(job),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", s.cfg.RetryDelay),
	)...)
}

func jobFields(job *Job) []zap.Field {
	return []zap.Field{zap.String("job_id", job.ID.String()), zap.String("kind", string(job.Kind))}
}
