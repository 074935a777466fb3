package handler

import (
	"net/http"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/api/models"
	"github.com/railwake/railwake/internal/api/response"
)

// AlarmHandler exposes the armed alarm, its adjustment history, and the
// foreground reconciliation trigger.
type AlarmHandler struct {
	states     *alarm.StateStore
	reconciler AlarmReconciler
}

// NewAlarmHandler creates a new AlarmHandler.
func NewAlarmHandler(states *alarm.StateStore, reconciler AlarmReconciler) *AlarmHandler {
	return &AlarmHandler{
		states:     states,
		reconciler: reconciler,
	}
}

// GetAlarm handles GET /v1/alarm - the currently armed alarm.
func (h *AlarmHandler) GetAlarm(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Load(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to load alarm state")
		return
	}
	if state == nil {
		response.NotFound(w, r, "no alarm is armed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AlarmState{
		AlarmTime: state.AlarmTime,
		CommuteID: state.CommuteID,
		LastLeg: models.AlarmLeg{
			Line:             state.LastLeg.Line,
			Origin:           state.LastLeg.Origin.Name,
			Destination:      state.LastLeg.Destination.Name,
			PlannedDeparture: state.LastLeg.PlannedDeparture,
			ActualDeparture:  state.LastLeg.ActualDeparture(),
			PlannedArrival:   state.LastLeg.PlannedArrival,
			ActualArrival:    state.LastLeg.ActualArrival(),
		},
	})
}

// ListAdjustments handles GET /v1/alarm/adjustments - recent alarm moves.
func (h *AlarmHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	history, err := h.states.History(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to load adjustment history")
		return
	}

	out := make([]models.Adjustment, 0, len(history))
	for _, rec := range history {
		out = append(out, models.Adjustment{
			ID:           rec.ID,
			Timestamp:    rec.Timestamp,
			OldAlarmTime: rec.OldAlarmTime,
			NewAlarmTime: rec.NewAlarmTime,
			DelayMinutes: rec.DelayMinutes,
		})
	}

	response.JSON(w, r, http.StatusOK, out)
}

// Reconcile handles POST /v1/alarm/reconcile - the foreground trigger. The
// client calls this when the app regains focus.
func (h *AlarmHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Run(r.Context(), alarm.TriggerForeground)
	if err != nil {
		if result != nil && result.Outcome == alarm.OutcomeFetchFailed {
			response.ServiceUnavailable(w, r, "live journey data is temporarily unavailable, try again")
			return
		}
		response.InternalError(w, r, "reconciliation failed")
		return
	}

	out := models.ReconcileResult{
		Outcome: string(result.Outcome),
		Warning: result.Warning,
	}
	if !result.AlarmTime.IsZero() {
		at := result.AlarmTime
		out.AlarmTime = &at
	}

	response.JSON(w, r, http.StatusOK, out)
}
