package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/worker"
)

type fakeReconciler struct {
	result      *alarm.Result
	err         error
	calls       atomic.Int64
	lastTrigger alarm.Trigger
}

func (f *fakeReconciler) Run(_ context.Context, trigger alarm.Trigger) (*alarm.Result, error) {
	f.calls.Add(1)
	f.lastTrigger = trigger
	return f.result, f.err
}

func TestDefaultReconcileConfig(t *testing.T) {
	cfg := worker.DefaultReconcileConfig()

	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
}

func TestReconcileJob_RunOnce_UsesBackgroundTrigger(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{Outcome: alarm.OutcomeUnchanged},
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	result, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, alarm.OutcomeUnchanged, result.Outcome)
	assert.Equal(t, alarm.TriggerBackground, rec.lastTrigger)
}

func TestReconcileJob_RunOnce_RecordsMetrics(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{
			Outcome:   alarm.OutcomeScheduled,
			AlarmTime: time.Now().Add(8 * time.Hour),
		},
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.SuccessfulRuns)
	assert.Equal(t, int64(0), metrics.FailedRuns)
	assert.Equal(t, int64(1), metrics.AlarmsArmed)
	assert.Equal(t, int64(0), metrics.AlarmsAdjusted)
	assert.Equal(t, alarm.OutcomeScheduled, metrics.LastOutcome)
	assert.NotZero(t, metrics.LastRunAt)
}

func TestReconcileJob_RunOnce_AdjustedCountsBothWays(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{
			Outcome:   alarm.OutcomeAdjusted,
			AlarmTime: time.Now().Add(8 * time.Hour),
		},
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.AlarmsAdjusted)
	assert.Equal(t, int64(1), metrics.AlarmsArmed)
}

func TestReconcileJob_RunOnce_Failure(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{Outcome: alarm.OutcomeFetchFailed},
		err:    errors.New("upstream down"),
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	_, err := job.RunOnce(context.Background())
	require.Error(t, err)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.FailedRuns)
	assert.Equal(t, int64(0), metrics.SuccessfulRuns)
	assert.Equal(t, alarm.OutcomeFetchFailed, metrics.LastOutcome)
}

func TestReconcileJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{Outcome: alarm.OutcomeNoActiveCommute},
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Config:     worker.ReconcileConfig{Interval: time.Hour, Timeout: time.Second},
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- job.Start(ctx)
	}()

	// The startup cycle runs without waiting for the first tick.
	assert.Eventually(t, func() bool {
		return rec.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reconcile loop did not stop after cancel")
	}
}

func TestReconcileJob_MetricsSnapshot(t *testing.T) {
	rec := &fakeReconciler{
		result: &alarm.Result{Outcome: alarm.OutcomeUnchanged},
	}
	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Reconciler: rec,
		Logger:     zerolog.Nop(),
	})

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	snapshot := job.MetricsSnapshot()

	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "successful_runs")
	assert.Contains(t, snapshot, "failed_runs")
	assert.Contains(t, snapshot, "alarms_adjusted")
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_outcome")
	assert.Equal(t, string(alarm.OutcomeUnchanged), snapshot["last_outcome"])
}
