package alarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/commute"
	"github.com/railwake/railwake/internal/notify"
	"github.com/railwake/railwake/internal/schedule"
	"github.com/railwake/railwake/internal/storage"
	"github.com/railwake/railwake/internal/transit"
)

// DefaultCycleTimeout bounds one reconciliation cycle so a background
// trigger cannot stall past its execution window.
const DefaultCycleTimeout = 20 * time.Second

// CommuteLister provides the commute definitions a cycle evaluates.
type CommuteLister interface {
	List(ctx context.Context) ([]*commute.Commute, error)
}

// JourneyFinder fetches live journey candidates for a route.
type JourneyFinder interface {
	FindJourneys(ctx context.Context, fromID, toID string, desiredArrival time.Time) ([]*transit.Journey, error)
}

// Result summarizes one reconciliation cycle.
type Result struct {
	Outcome   Outcome
	AlarmTime time.Time

	// Warning carries the degraded-safety reasoning when the selected
	// journey could not meet the deadline. Empty otherwise.
	Warning string
}

// ReconcilerConfig holds the dependencies for the reconciler.
type ReconcilerConfig struct {
	Commutes CommuteLister
	Journeys JourneyFinder
	States   *StateStore

	// Notifier is the baseline delivery channel. Always used.
	Notifier notify.Gateway

	// Waker is the richer native wake facility. Optional and best-effort;
	// a Waker failure never blocks the Notifier channel.
	Waker notify.Gateway

	Logger zerolog.Logger

	// CycleTimeout bounds one cycle. Default: DefaultCycleTimeout.
	CycleTimeout time.Duration

	// Now is the clock, overridable in tests. Default: time.Now.
	Now func() time.Time
}

// Reconciler runs the resolve, fetch, select, persist-if-changed cycle.
//
// Three independent triggers drive it with no shared lock: an app
// foreground, a periodic background tick, and an explicit settings save.
// Correctness across them rests on the compare-before-write in Run plus the
// version check in StateStore.Save: a cycle whose snapshot went stale
// re-reads and re-evaluates instead of clobbering the newer write.
type Reconciler struct {
	commutes CommuteLister
	journeys JourneyFinder
	states   *StateStore
	notifier notify.Gateway
	waker    notify.Gateway
	logger   zerolog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.CycleTimeout == 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Reconciler{
		commutes: cfg.Commutes,
		journeys: cfg.Journeys,
		states:   cfg.States,
		notifier: cfg.Notifier,
		waker:    cfg.Waker,
		logger:   cfg.Logger.With().Str("component", "reconciler").Logger(),
		timeout:  cfg.CycleTimeout,
		now:      cfg.Now,
	}
}

// Run executes one reconciliation cycle. A benign no-op (no due commute, no
// change) is a nil-error Result. A fetch failure returns the error together
// with an OutcomeFetchFailed result; the previous alarm state stands.
func (r *Reconciler) Run(ctx context.Context, trigger Trigger) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := r.logger.With().Str("trigger", string(trigger)).Logger()

	commutes, err := r.commutes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing commutes: %w", err)
	}

	now := r.now()
	occ := schedule.NextActiveCommute(now, commutes)
	if occ == nil {
		logger.Debug().Msg("no active commute, leaving alarm state untouched")
		return &Result{Outcome: OutcomeNoActiveCommute}, nil
	}

	if !occ.Commute.HasStations() {
		logger.Debug().Str("commute_id", occ.Commute.ID).Msg("commute has no stations configured")
		return &Result{Outcome: OutcomeMissingStations}, nil
	}

	journeys, err := r.journeys.FindJourneys(ctx, occ.Commute.StartStation.ID, occ.Commute.DestinationStation.ID, occ.Arrival)
	if err != nil {
		logger.Warn().Err(err).
			Str("commute_id", occ.Commute.ID).
			Msg("journey fetch failed, keeping previous alarm state")
		return &Result{Outcome: OutcomeFetchFailed}, err
	}

	sel := SelectOptimalJourney(journeys, occ.Arrival, occ.Commute.PreparationTime, occ.Commute.SafetyBuffer)
	if sel.Journey == nil {
		logger.Info().Str("commute_id", occ.Commute.ID).Msg("no journeys returned for commute")
		return &Result{Outcome: OutcomeNoJourneys}, nil
	}
	if sel.Fallback {
		logger.Warn().
			Str("commute_id", occ.Commute.ID).
			Str("reasoning", sel.Reasoning).
			Msg("no viable journey, degraded-safety selection")
	}

	if !sel.AlarmTime.After(r.now()) {
		logger.Info().
			Time("alarm_time", sel.AlarmTime).
			Msg("computed alarm time already passed, discarding")
		return &Result{Outcome: OutcomeStaleAlarm}, nil
	}

	return r.commit(ctx, logger, occ, sel)
}

// commit performs the compare-before-write with one optimistic retry.
func (r *Reconciler) commit(ctx context.Context, logger zerolog.Logger, occ *schedule.Occurrence, sel Selection) (*Result, error) {
	for attempt := 0; attempt < 2; attempt++ {
		prev, err := r.states.Load(ctx)
		if err != nil {
			return nil, err
		}

		if prev != nil && prev.AlarmTime.Equal(sel.AlarmTime) && prev.CommuteID == occ.Commute.ID {
			return &Result{Outcome: OutcomeUnchanged, AlarmTime: sel.AlarmTime, Warning: warning(sel)}, nil
		}

		state := &State{
			AlarmTime: sel.AlarmTime,
			CommuteID: occ.Commute.ID,
			LastLeg:   *sel.Journey.LastLeg(),
		}
		if prev != nil {
			state.Version = prev.Version
		}

		if err := r.states.Save(ctx, state); err != nil {
			if errors.Is(err, storage.ErrVersionMismatch) {
				logger.Info().Int("attempt", attempt+1).Msg("alarm state changed under us, re-evaluating")
				continue
			}
			return nil, err
		}

		outcome := OutcomeScheduled
		if prev != nil {
			outcome = OutcomeAdjusted
			if err := r.recordAdjustment(ctx, logger, prev, state); err != nil {
				logger.Warn().Err(err).Msg("failed to record alarm adjustment")
			}
		}

		r.arm(ctx, logger, occ, sel)

		logger.Info().
			Str("commute_id", occ.Commute.ID).
			Time("alarm_time", sel.AlarmTime).
			Str("outcome", string(outcome)).
			Msg("alarm state committed")

		return &Result{Outcome: outcome, AlarmTime: sel.AlarmTime, Warning: warning(sel)}, nil
	}

	return nil, fmt.Errorf("saving alarm state: %w", storage.ErrVersionMismatch)
}

// recordAdjustment writes the history entry for a moved alarm.
func (r *Reconciler) recordAdjustment(ctx context.Context, logger zerolog.Logger, prev, next *State) error {
	record := AdjustmentRecord{
		ID:           uuid.New().String(),
		Timestamp:    r.now().UTC(),
		OldAlarmTime: prev.AlarmTime,
		NewAlarmTime: next.AlarmTime,
		DelayMinutes: int(next.AlarmTime.Sub(prev.AlarmTime).Minutes()),
	}

	logger.Info().
		Time("old", record.OldAlarmTime).
		Time("new", record.NewAlarmTime).
		Int("delay_minutes", record.DelayMinutes).
		Msg("alarm adjusted")

	return r.states.AppendAdjustment(ctx, record)
}

// arm cancels and reschedules both delivery channels under the fixed alarm
// id. The notifier is the safety net; the waker is best-effort on top.
func (r *Reconciler) arm(ctx context.Context, logger zerolog.Logger, occ *schedule.Occurrence, sel Selection) {
	title := "Time to wake up"
	subtitle := alarmSubtitle(occ, sel)

	if err := r.notifier.Cancel(ctx, AlarmID); err != nil {
		logger.Warn().Err(err).Msg("failed to cancel previous notification")
	}
	if err := r.notifier.Schedule(ctx, AlarmID, sel.AlarmTime, title, subtitle); err != nil {
		logger.Error().Err(err).Msg("failed to schedule notification")
	}

	if r.waker == nil || !r.waker.IsAvailable(ctx) {
		return
	}
	if err := r.waker.Cancel(ctx, AlarmID); err != nil {
		logger.Warn().Err(err).Msg("failed to cancel previous native alarm")
	}
	if err := r.waker.Schedule(ctx, AlarmID, sel.AlarmTime, title, subtitle); err != nil {
		logger.Warn().Err(err).Msg("failed to arm native alarm, notification channel stands")
	}
}

// HandleCommuteDeleted clears the alarm if it was derived from the deleted
// commute and cancels both delivery channels. Deleting an unrelated commute
// leaves the alarm alone.
func (r *Reconciler) HandleCommuteDeleted(ctx context.Context, commuteID string) error {
	state, err := r.states.Load(ctx)
	if err != nil {
		return err
	}
	if state == nil || state.CommuteID != commuteID {
		return nil
	}

	if err := r.states.Clear(ctx); err != nil {
		return err
	}

	if err := r.notifier.Cancel(ctx, AlarmID); err != nil {
		r.logger.Warn().Err(err).Msg("failed to cancel notification for deleted commute")
	}
	if r.waker != nil {
		if err := r.waker.Cancel(ctx, AlarmID); err != nil {
			r.logger.Warn().Err(err).Msg("failed to cancel native alarm for deleted commute")
		}
	}

	r.logger.Info().Str("commute_id", commuteID).Msg("alarm cleared for deleted commute")

	return nil
}

func warning(sel Selection) string {
	if !sel.Fallback {
		return ""
	}
	return sel.Reasoning
}

// alarmSubtitle renders the line and delay status for the armed journey.
func alarmSubtitle(occ *schedule.Occurrence, sel Selection) string {
	leg := sel.Journey.FirstLeg()
	status := "on time"
	if leg.DepartureDelay != nil && *leg.DepartureDelay > 0 {
		status = fmt.Sprintf("+%d min", *leg.DepartureDelay/60)
	}
	return fmt.Sprintf("%s to %s departs %s (%s)",
		leg.Line,
		occ.Commute.DestinationStation.Name,
		leg.ActualDeparture().Format("15:04"),
		status,
	)
}
