package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/api/models"
	"github.com/railwake/railwake/internal/api/response"
	"github.com/railwake/railwake/internal/commute"
	"github.com/railwake/railwake/internal/schedule"
)

// AlarmReconciler re-evaluates the alarm after commute changes.
type AlarmReconciler interface {
	Run(ctx context.Context, trigger alarm.Trigger) (*alarm.Result, error)
	HandleCommuteDeleted(ctx context.Context, commuteID string) error
}

// CommuteHandler handles commute endpoints. Every mutation ends with a
// settings-save reconciliation so the armed alarm tracks the new rules.
type CommuteHandler struct {
	commutes   *commute.Service
	reconciler AlarmReconciler
	logger     zerolog.Logger
}

// NewCommuteHandler creates a new CommuteHandler.
func NewCommuteHandler(commutes *commute.Service, reconciler AlarmReconciler, logger zerolog.Logger) *CommuteHandler {
	return &CommuteHandler{
		commutes:   commutes,
		reconciler: reconciler,
		logger:     logger,
	}
}

// ListCommutes handles GET /v1/commutes - list commutes.
func (h *CommuteHandler) ListCommutes(w http.ResponseWriter, r *http.Request) {
	commutes, err := h.commutes.List(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to load commutes")
		return
	}

	out := make([]models.Commute, 0, len(commutes))
	for _, c := range commutes {
		out = append(out, toCommuteResponse(c))
	}

	response.JSON(w, r, http.StatusOK, out)
}

// GetCommute handles GET /v1/commutes/{commuteId}.
func (h *CommuteHandler) GetCommute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "commuteId")

	c, err := h.commutes.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, commute.ErrCommuteNotFound) {
			response.NotFound(w, r, "commute not found")
			return
		}
		response.InternalError(w, r, "failed to load commute")
		return
	}

	response.JSON(w, r, http.StatusOK, toCommuteResponse(c))
}

// CreateCommute handles POST /v1/commutes.
func (h *CommuteHandler) CreateCommute(w http.ResponseWriter, r *http.Request) {
	var input models.CommuteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.commutes.Create(r.Context(), fromCommuteRequest(&input))
	if err != nil {
		writeCommuteError(w, r, err)
		return
	}

	h.reconcile(r.Context())

	response.Created(w, r, "/v1/commutes/"+created.ID, toCommuteResponse(created))
}

// UpdateCommute handles PUT /v1/commutes/{commuteId}.
func (h *CommuteHandler) UpdateCommute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "commuteId")

	var input models.CommuteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	c := fromCommuteRequest(&input)
	c.ID = id

	updated, err := h.commutes.Update(r.Context(), c)
	if err != nil {
		writeCommuteError(w, r, err)
		return
	}

	h.reconcile(r.Context())

	response.JSON(w, r, http.StatusOK, toCommuteResponse(updated))
}

// DeleteCommute handles DELETE /v1/commutes/{commuteId}. The alarm derived
// from the deleted commute is cancelled; alarms for other commutes stand.
func (h *CommuteHandler) DeleteCommute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "commuteId")

	if err := h.commutes.Delete(r.Context(), id); err != nil {
		if errors.Is(err, commute.ErrCommuteNotFound) {
			response.NotFound(w, r, "commute not found")
			return
		}
		response.InternalError(w, r, "failed to delete commute")
		return
	}

	if err := h.reconciler.HandleCommuteDeleted(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("commute_id", id).Msg("failed to clear alarm for deleted commute")
	}
	h.reconcile(r.Context())

	response.NoContent(w, r)
}

// reconcile runs a settings-save cycle. Failures are logged, not surfaced;
// the commute mutation itself already succeeded.
func (h *CommuteHandler) reconcile(ctx context.Context) {
	if _, err := h.reconciler.Run(ctx, alarm.TriggerSettingsSave); err != nil {
		h.logger.Warn().Err(err).Msg("post-save reconciliation failed")
	}
}

func writeCommuteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, commute.ErrCommuteNotFound):
		response.NotFound(w, r, "commute not found")
	case errors.Is(err, commute.ErrMissingName),
		errors.Is(err, commute.ErrInvalidArrivalTime),
		errors.Is(err, commute.ErrInvalidDays),
		errors.Is(err, commute.ErrMissingOneTimeDate),
		errors.Is(err, commute.ErrNegativeDuration):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		response.InternalError(w, r, "failed to save commute")
	}
}

func fromCommuteRequest(in *models.CommuteRequest) *commute.Commute {
	return &commute.Commute{
		Name:               in.Name,
		Enabled:            in.Enabled,
		StartStation:       commute.StationRef{ID: in.StartStation.ID, Name: in.StartStation.Name},
		DestinationStation: commute.StationRef{ID: in.DestinationStation.ID, Name: in.DestinationStation.Name},
		ArrivalTime:        in.ArrivalTime,
		PreparationTime:    in.PreparationTime,
		SafetyBuffer:       in.SafetyBuffer,
		IsRecurring:        in.IsRecurring,
		Days:               in.Days,
		OneTimeDate:        in.OneTimeDate,
	}
}

func toCommuteResponse(c *commute.Commute) models.Commute {
	out := models.Commute{
		ID:                 c.ID,
		Name:               c.Name,
		Enabled:            c.Enabled,
		StartStation:       models.StationRef{ID: c.StartStation.ID, Name: c.StartStation.Name},
		DestinationStation: models.StationRef{ID: c.DestinationStation.ID, Name: c.DestinationStation.Name},
		ArrivalTime:        c.ArrivalTime,
		PreparationTime:    c.PreparationTime,
		SafetyBuffer:       c.SafetyBuffer,
		IsRecurring:        c.IsRecurring,
		Days:               c.Days,
		OneTimeDate:        c.OneTimeDate,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}

	if next, ok := schedule.NextOccurrence(c, time.Now()); ok {
		out.NextOccurrence = &next
	}

	return out
}
