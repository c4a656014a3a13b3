package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/infrastructure/config"
)

// Reconciler grants entitlements missing for successful orders
type Reconciler interface {
	Reconcile(ctx context.Context) (sales.ReconcileReport, error)
}

// ReconcileExecutor runs RECONCILE_ENTITLEMENTS jobs. A run that leaves
// failed orders behind is reported as an error so the job is retried.
type ReconcileExecutor struct {
	reconciler Reconciler
	logger     *zap.Logger

	mu   sync.RWMutex
	last *ReconcileRun
}

// ReconcileRun is the outcome of the latest reconciliation
type ReconcileRun struct {
	Report     sales.ReconcileReport `json:"report"`
	FinishedAt time.Time             `json:"finishedAt"`
	Error      string                `json:"error,omitempty"`
}

// NewReconcileExecutor creates an executor around r
func NewReconcileExecutor(r Reconciler, logger *zap.Logger) *ReconcileExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileExecutor{reconciler: r, logger: logger}
}

// Execute implements JobExecutor
func (e *ReconcileExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Kind != JobKindReconcileEntitlements {
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}

	report, err := e.reconciler.Reconcile(ctx)
	if err == nil && report.Failed > 0 {
		err = fmt.Errorf("%w: %d of %d orders failed", ErrReconcileIncomplete, report.Failed, report.Scanned)
	}

	run := &ReconcileRun{Report: report, FinishedAt: time.Now()}
	if err != nil {
		run.Error = err.Error()
	}
	e.mu.Lock()
	e.last = run
	e.mu.Unlock()
	return err
}

// LastRun returns the latest outcome, or nil before the first run
func (e *ReconcileExecutor) LastRun() *ReconcileRun {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return nil
	}
	run := *e.last
	return &run
}

// ReconcileScheduler submits a reconciliation job every Interval
type ReconcileScheduler struct {
	scheduler *Scheduler
	logger    *zap.Logger
	config    config.SchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconcileScheduler creates an interval trigger over scheduler
func NewReconcileScheduler(scheduler *Scheduler, cfg config.SchedulerConfig, logger *zap.Logger) *ReconcileScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileScheduler{scheduler: scheduler, logger: logger, config: cfg}
}

// Start starts the worker pool and the interval loop
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Entitlement reconciliation scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Entitlement reconciliation scheduler started",
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop stops the interval loop, then the worker pool
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.scheduler.Stop(ctx)
}

// Trigger queues an immediate reconciliation
func (s *ReconcileScheduler) Trigger() (*Job, error) {
	return s.scheduler.Submit(JobKindReconcileEntitlements)
}

func (s *ReconcileScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Trigger(); err != nil {
				s.logger.Warn("Skipped scheduled reconciliation", zap.Error(err))
			}
		}
	}
}
