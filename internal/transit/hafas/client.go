// Package hafas provides a transit provider backed by a HAFAS-style
// journey-search REST API.
package hafas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/provider/resilience"
	"github.com/railwake/railwake/internal/transit"
)

const (
	// ProviderName identifies this transit provider.
	ProviderName = "hafas"

	// DefaultBaseURL is the public DB journey-search API.
	DefaultBaseURL = "https://v6.db.transport.rest"
)

// ClientConfig holds configuration for the HAFAS client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a HAFAS journey-search API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new HAFAS client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// BaseURL returns the provider's API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchStations looks up stations matching a free-text query via
// GET /locations.
func (c *Client) SearchStations(ctx context.Context, query string, limit int) ([]*transit.Station, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("results", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s/locations?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var locations []hafasLocation
	if err := json.NewDecoder(resp.Body).Decode(&locations); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	stations := make([]*transit.Station, 0, len(locations))
	for i := range locations {
		stations = append(stations, toStation(&locations[i]))
	}

	return stations, nil
}

// FindJourneys fetches journey options arriving around the desired time via
// GET /journeys.
func (c *Client) FindJourneys(ctx context.Context, fromID, toID string, desiredArrival time.Time, results int) ([]*transit.Journey, error) {
	params := url.Values{}
	params.Set("from", fromID)
	params.Set("to", toID)
	params.Set("arrival", desiredArrival.Format(time.RFC3339))
	params.Set("results", strconv.Itoa(results))

	reqURL := fmt.Sprintf("%s/journeys?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var hafasResp journeysResponse
	if err := json.NewDecoder(resp.Body).Decode(&hafasResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	journeys := make([]*transit.Journey, 0, len(hafasResp.Journeys))
	for i := range hafasResp.Journeys {
		j, err := toJourney(&hafasResp.Journeys[i])
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping malformed journey")
			continue
		}
		journeys = append(journeys, j)
	}

	return journeys, nil
}

// toStation converts a HAFAS location to the domain model.
func toStation(l *hafasLocation) *transit.Station {
	return &transit.Station{
		ID:   l.ID,
		Name: l.Name,
	}
}

// toJourney converts a HAFAS journey to the domain model.
func toJourney(j *hafasJourney) (*transit.Journey, error) {
	if len(j.Legs) == 0 {
		return nil, fmt.Errorf("journey has no legs")
	}

	legs := make([]transit.Leg, 0, len(j.Legs))
	for i := range j.Legs {
		leg, err := toLeg(&j.Legs[i])
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	return &transit.Journey{Legs: legs}, nil
}

// toLeg converts a HAFAS leg, preferring planned timestamps so live delays
// are always carried separately. Missing delay fields are left nil.
func toLeg(l *hafasLeg) (transit.Leg, error) {
	plannedDeparture := l.PlannedDeparture
	if plannedDeparture == "" {
		plannedDeparture = l.Departure
	}
	plannedArrival := l.PlannedArrival
	if plannedArrival == "" {
		plannedArrival = l.Arrival
	}

	dep, err := time.Parse(time.RFC3339, plannedDeparture)
	if err != nil {
		return transit.Leg{}, fmt.Errorf("parsing departure: %w", err)
	}

	arr, err := time.Parse(time.RFC3339, plannedArrival)
	if err != nil {
		return transit.Leg{}, fmt.Errorf("parsing arrival: %w", err)
	}

	return transit.Leg{
		Origin:           transit.Station{ID: l.Origin.ID, Name: l.Origin.Name},
		Destination:      transit.Station{ID: l.Destination.ID, Name: l.Destination.Name},
		PlannedDeparture: dep,
		PlannedArrival:   arr,
		DepartureDelay:   l.DepartureDelay,
		ArrivalDelay:     l.ArrivalDelay,
		Line:             l.Line.Name,
	}, nil
}

// HAFAS API response structures.

type hafasLocation struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type journeysResponse struct {
	Journeys []hafasJourney `json:"journeys"`
}

type hafasJourney struct {
	Legs []hafasLeg `json:"legs"`
}

type hafasLeg struct {
	Origin           hafasLocation `json:"origin"`
	Destination      hafasLocation `json:"destination"`
	Departure        string        `json:"departure"`
	PlannedDeparture string        `json:"plannedDeparture"`
	DepartureDelay   *int          `json:"departureDelay"`
	Arrival          string        `json:"arrival"`
	PlannedArrival   string        `json:"plannedArrival"`
	ArrivalDelay     *int          `json:"arrivalDelay"`
	Line             hafasLine     `json:"line"`
}

type hafasLine struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}
