package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/infrastructure/config"
)

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:       true,
		Interval:      time.Hour,
		Workers:       2,
		QueueSize:     4,
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindReconcileEntitlements, 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())
	job.ScheduleRetry()
	assert.Equal(t, 1, job.RetryCount)
	assert.Empty(t, job.Error)

	job.Start()
	job.Fail("boom")
	assert.False(t, job.ShouldRetry())

	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.False(t, job.ShouldRetry())
}

func TestScheduler_SubmitRequiresStart(t *testing.T) {
	s := NewScheduler(testConfig(), JobExecutorFunc(func(context.Context, *Job) error { return nil }), zaptest.NewLogger(t))
	assert.ErrorIs(t, s.SubmitJob(NewJob(JobKindReconcileEntitlements, 0)), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}

func TestScheduler_RunsJobs(t *testing.T) {
	done := make(chan *Job, 1)
	s := NewScheduler(testConfig(), JobExecutorFunc(func(_ context.Context, job *Job) error {
		done <- job
		return nil
	}), zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	job, err := s.Submit(JobKindReconcileEntitlements)
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, job.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	finished := make(chan struct{})
	s := NewScheduler(testConfig(), JobExecutorFunc(func(_ context.Context, job *Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(finished)
		return nil
	}), zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	_, err := s.Submit(JobKindReconcileEntitlements)
	require.NoError(t, err)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("job not retried, attempts=%d", attempts.Load())
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestScheduler_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s := NewScheduler(cfg, JobExecutorFunc(func(ctx context.Context, _ *Job) error {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}), zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	_, err := s.Submit(JobKindReconcileEntitlements)
	require.NoError(t, err)
	<-started

	_, err = s.Submit(JobKindReconcileEntitlements)
	require.NoError(t, err)
	_, err = s.Submit(JobKindReconcileEntitlements)
	assert.ErrorIs(t, err, ErrJobQueueFull)
	close(release)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(testConfig(), JobExecutorFunc(func(context.Context, *Job) error { return nil }), zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	_, err := s.Submit(JobKindReconcileEntitlements)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

type fakeReconciler struct {
	report sales.ReconcileReport
	err    error
	calls  atomic.Int32
}

func (f *fakeReconciler) Reconcile(context.Context) (sales.ReconcileReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestReconcileExecutor(t *testing.T) {
	tests := []struct {
		name    string
		report  sales.ReconcileReport
		err     error
		wantErr error
	}{
		{"clean run", sales.ReconcileReport{Scanned: 3, Granted: 1}, nil, nil},
		{"failed orders are retried", sales.ReconcileReport{Scanned: 3, Failed: 1}, nil, ErrReconcileIncomplete},
		{"ledger unreadable", sales.ReconcileReport{}, errors.New("offline"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewReconcileExecutor(&fakeReconciler{report: tt.report, err: tt.err}, zaptest.NewLogger(t))
			assert.Nil(t, e.LastRun())

			err := e.Execute(context.Background(), NewJob(JobKindReconcileEntitlements, 0))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			default:
				assert.NoError(t, err)
			}

			run := e.LastRun()
			require.NotNil(t, run)
			assert.Equal(t, tt.report, run.Report)
			assert.Equal(t, err != nil, run.Error != "")
		})
	}

	t.Run("rejects other kinds", func(t *testing.T) {
		e := NewReconcileExecutor(&fakeReconciler{}, nil)
		err := e.Execute(context.Background(), NewJob("OTHER", 0))
		assert.ErrorIs(t, err, ErrUnknownJobKind)
	})
}

func TestReconcileScheduler(t *testing.T) {
	t.Run("disabled does nothing", func(t *testing.T) {
		cfg := testConfig()
		cfg.Enabled = false
		pool := NewScheduler(cfg, NewReconcileExecutor(&fakeReconciler{}, nil), nil)
		s := NewReconcileScheduler(pool, cfg, zaptest.NewLogger(t))
		require.NoError(t, s.Start(context.Background()))
		assert.False(t, pool.IsRunning())
		_, err := s.Trigger()
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})

	t.Run("interval submits reconciliation", func(t *testing.T) {
		cfg := testConfig()
		cfg.Interval = 20 * time.Millisecond
		r := &fakeReconciler{}
		pool := NewScheduler(cfg, NewReconcileExecutor(r, nil), zaptest.NewLogger(t))
		s := NewReconcileScheduler(pool, cfg, zaptest.NewLogger(t))
		require.NoError(t, s.Start(context.Background()))

		assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))
		assert.False(t, pool.IsRunning())
	})
}
