// Package alarm computes and maintains the wake-up alarm for the next
// commute: journey selection, persisted alarm state, and the reconciliation
// engine that keeps the device alarm in sync with live delay data.
package alarm

import (
	"time"

	"github.com/railwake/railwake/internal/transit"
)

// AlarmID is the fixed delivery id used on the notification and wake
// channels. Reusing one id means a reschedule always replaces the previous
// alarm instead of accumulating duplicates.
const AlarmID = "railwake-wake"

// HistoryLimit bounds the adjustment history to the most recent entries.
const HistoryLimit = 10

// Trigger identifies which event started a reconciliation cycle.
type Trigger string

// Reconciliation triggers.
const (
	TriggerForeground   Trigger = "foreground"
	TriggerBackground   Trigger = "background"
	TriggerSettingsSave Trigger = "settings_save"
)

// Outcome summarizes what a reconciliation cycle did.
type Outcome string

// Reconciliation outcomes.
const (
	// OutcomeNoActiveCommute means no enabled commute is upcoming.
	// Any previously armed alarm stays in place.
	OutcomeNoActiveCommute Outcome = "no_active_commute"

	// OutcomeMissingStations means the due commute has no route configured.
	OutcomeMissingStations Outcome = "missing_stations"

	// OutcomeFetchFailed means the journey fetch failed after retries.
	// The previous alarm state stands.
	OutcomeFetchFailed Outcome = "fetch_failed"

	// OutcomeNoJourneys means the upstream returned an empty journey list.
	OutcomeNoJourneys Outcome = "no_journeys"

	// OutcomeStaleAlarm means the computed alarm time was already in the
	// past at evaluation time and was discarded.
	OutcomeStaleAlarm Outcome = "stale_alarm"

	// OutcomeUnchanged means the computed alarm time equals the persisted
	// one. No write, no notification, no history entry.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeScheduled means an alarm was armed for the first time.
	OutcomeScheduled Outcome = "scheduled"

	// OutcomeAdjusted means an existing alarm was moved and an adjustment
	// record was written.
	OutcomeAdjusted Outcome = "adjusted"
)

// State is the currently armed wake time and the commute and leg it was
// derived from. Version carries the storage revision used for optimistic
// concurrency; it never appears in the serialized value.
type State struct {
	AlarmTime time.Time   `json:"alarmTime"`
	CommuteID string      `json:"commuteId"`
	LastLeg   transit.Leg `json:"lastLeg"`

	Version int64 `json:"-"`
}

// AdjustmentRecord documents one move of an existing alarm. Records are
// append-only and the history is trimmed to HistoryLimit entries.
type AdjustmentRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	OldAlarmTime time.Time `json:"oldAlarmTime"`
	NewAlarmTime time.Time `json:"newAlarmTime"`

	// DelayMinutes is how far the alarm moved, in minutes. Positive means
	// the alarm moved later.
	DelayMinutes int `json:"delayMinutes"`
}
