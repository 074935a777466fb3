package handler

import (
	"context"
	"net/http"

	"github.com/railwake/railwake/internal/api/models"
	"github.com/railwake/railwake/internal/api/response"
	"github.com/railwake/railwake/internal/transit"
)

// StationSearcher resolves free-text queries to station references.
type StationSearcher interface {
	SearchStations(ctx context.Context, query string) ([]*transit.Station, error)
}

// StationHandler handles station search endpoints.
type StationHandler struct {
	transit StationSearcher
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(searcher StationSearcher) *StationHandler {
	return &StationHandler{transit: searcher}
}

// SearchStations handles GET /v1/stations?query= - station search.
func (h *StationHandler) SearchStations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		response.BadRequest(w, r, "query parameter is required", []models.FieldError{
			{Field: "query", Message: "must not be empty", Code: "required"},
		})
		return
	}

	stations, err := h.transit.SearchStations(r.Context(), query)
	if err != nil {
		response.ServiceUnavailable(w, r, "station lookup is temporarily unavailable")
		return
	}

	out := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		out = append(out, models.Station{ID: s.ID, Name: s.Name})
	}

	response.JSON(w, r, http.StatusOK, out)
}
