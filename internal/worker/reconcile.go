package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/alarm"
)

// Reconciler runs one alarm reconciliation cycle.
type Reconciler interface {
	Run(ctx context.Context, trigger alarm.Trigger) (*alarm.Result, error)
}

// ReconcileJob drives the background reconciliation loop. The API serves
// foreground and settings-save triggers; this job covers the stretches in
// between, so a delay posted while the app is closed still moves the alarm.
type ReconcileJob struct {
	config     ReconcileConfig
	reconciler Reconciler
	logger     zerolog.Logger

	metrics *ReconcileMetrics
}

// ReconcileMetrics tracks reconcile job statistics.
type ReconcileMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AlarmsAdjusted int64
	AlarmsArmed    int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration

	// LastOutcome is the outcome of the most recent cycle.
	LastOutcome alarm.Outcome
}

// ReconcileJobConfig holds configuration for creating a ReconcileJob.
type ReconcileJobConfig struct {
	Config     ReconcileConfig
	Reconciler Reconciler
	Logger     zerolog.Logger
}

// NewReconcileJob creates a new reconcile job processor.
func NewReconcileJob(cfg ReconcileJobConfig) *ReconcileJob {
	return &ReconcileJob{
		config:     cfg.Config.withDefaults(),
		reconciler: cfg.Reconciler,
		logger:     cfg.Logger.With().Str("component", "reconcile_job").Logger(),
		metrics:    &ReconcileMetrics{},
	}
}

// RunOnce executes a single background reconcile cycle and records metrics.
func (j *ReconcileJob) RunOnce(ctx context.Context) (*alarm.Result, error) {
	startTime := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	result, err := j.reconciler.Run(runCtx, alarm.TriggerBackground)
	duration := time.Since(startTime)

	j.updateMetrics(result, err, duration)

	if err != nil {
		j.logger.Error().Err(err).Dur("duration", duration).Msg("background reconcile failed")
		return result, err
	}

	event := j.logger.Info().
		Str("outcome", string(result.Outcome)).
		Dur("duration", duration)
	if !result.AlarmTime.IsZero() {
		event = event.Time("alarm_time", result.AlarmTime)
	}
	if result.Warning != "" {
		event = event.Str("warning", result.Warning)
	}
	event.Msg("background reconcile completed")

	return result, nil
}

// Start runs the reconcile loop until the context is cancelled. One cycle
// runs immediately on startup so a freshly deployed worker converges without
// waiting out the first interval.
func (j *ReconcileJob) Start(ctx context.Context) error {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Msg("starting reconcile loop")

	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Warn().Err(err).Msg("initial reconcile failed, will retry on next tick")
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("reconcile loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				// Transient upstream failures are expected; the armed
				// alarm is untouched and the next tick tries again.
				continue
			}
		}
	}
}

func (j *ReconcileJob) updateMetrics(result *alarm.Result, err error, duration time.Duration) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.LastRunAt = time.Now()
	j.metrics.LastRunDuration = duration
	j.metrics.TotalDuration += duration

	if err != nil {
		j.metrics.FailedRuns++
	} else {
		j.metrics.SuccessfulRuns++
	}

	if result != nil {
		j.metrics.LastOutcome = result.Outcome
		switch result.Outcome {
		case alarm.OutcomeAdjusted:
			j.metrics.AlarmsAdjusted++
			j.metrics.AlarmsArmed++
		case alarm.OutcomeScheduled:
			j.metrics.AlarmsArmed++
		}
	}
}

// GetMetrics returns a copy of the current metrics.
func (j *ReconcileJob) GetMetrics() ReconcileMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ReconcileMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulRuns:  j.metrics.SuccessfulRuns,
		FailedRuns:      j.metrics.FailedRuns,
		AlarmsAdjusted:  j.metrics.AlarmsAdjusted,
		AlarmsArmed:     j.metrics.AlarmsArmed,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
		LastOutcome:     j.metrics.LastOutcome,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ReconcileJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_runs":   m.SuccessfulRuns,
		"failed_runs":       m.FailedRuns,
		"alarms_adjusted":   m.AlarmsAdjusted,
		"alarms_armed":      m.AlarmsArmed,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
		"last_outcome":      string(m.LastOutcome),
	}
}
