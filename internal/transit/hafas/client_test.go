package hafas_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwake/railwake/internal/provider/resilience"
	"github.com/railwake/railwake/internal/transit/hafas"
)

func testHTTPClient(name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	return resilience.NewClient(cfg)
}

func TestClient_Name(t *testing.T) {
	client := hafas.NewClient(hafas.ClientConfig{Logger: zerolog.Nop()})

	assert.Equal(t, "hafas", client.Name())
	assert.Equal(t, hafas.DefaultBaseURL, client.BaseURL())
}

func TestClient_SearchStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations", r.URL.Path)
		assert.Equal(t, "amsterdam", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("results"))

		resp := []map[string]interface{}{
			{"type": "stop", "id": "8400058", "name": "Amsterdam Centraal"},
			{"type": "stop", "id": "8400061", "name": "Amsterdam Zuid"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := hafas.NewClient(hafas.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient("hafas-test"),
		Logger:     zerolog.Nop(),
	})

	stations, err := client.SearchStations(context.Background(), "amsterdam", 10)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "8400058", stations[0].ID)
	assert.Equal(t, "Amsterdam Centraal", stations[0].Name)
}

func TestClient_SearchStations_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := hafas.NewClient(hafas.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient("hafas-test"),
		Logger:     zerolog.Nop(),
	})

	_, err := client.SearchStations(context.Background(), "amsterdam", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 401")
}

func TestClient_FindJourneys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/journeys", r.URL.Path)
		assert.Equal(t, "8400058", r.URL.Query().Get("from"))
		assert.Equal(t, "8400319", r.URL.Query().Get("to"))
		assert.Equal(t, "5", r.URL.Query().Get("results"))
		assert.NotEmpty(t, r.URL.Query().Get("arrival"))

		resp := map[string]interface{}{
			"journeys": []map[string]interface{}{
				{
					"legs": []map[string]interface{}{
						{
							"origin":           map[string]string{"id": "8400058", "name": "Amsterdam Centraal"},
							"destination":      map[string]string{"id": "8400319", "name": "Utrecht Centraal"},
							"plannedDeparture": "2024-03-11T18:10:00+01:00",
							"plannedArrival":   "2024-03-11T18:38:00+01:00",
							"departureDelay":   120,
							"arrivalDelay":     60,
							"line":             map[string]string{"name": "IC 2045", "mode": "train"},
						},
					},
				},
				{
					"legs": []map[string]interface{}{
						{
							"origin":           map[string]string{"id": "8400058", "name": "Amsterdam Centraal"},
							"destination":      map[string]string{"id": "8400319", "name": "Utrecht Centraal"},
							"plannedDeparture": "2024-03-11T18:25:00+01:00",
							"plannedArrival":   "2024-03-11T18:53:00+01:00",
							"line":             map[string]string{"name": "SPR 4047", "mode": "train"},
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := hafas.NewClient(hafas.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient("hafas-test"),
		Logger:     zerolog.Nop(),
	})

	arrival := time.Date(2024, 3, 11, 19, 0, 0, 0, time.UTC)
	journeys, err := client.FindJourneys(context.Background(), "8400058", "8400319", arrival, 5)
	require.NoError(t, err)
	require.Len(t, journeys, 2)

	first := journeys[0].FirstLeg()
	require.NotNil(t, first)
	assert.Equal(t, "IC 2045", first.Line)
	require.NotNil(t, first.DepartureDelay)
	assert.Equal(t, 120, *first.DepartureDelay)
	require.NotNil(t, first.ArrivalDelay)
	assert.Equal(t, 60, *first.ArrivalDelay)

	// The second journey carries no delay fields; they stay nil.
	second := journeys[1].FirstLeg()
	require.NotNil(t, second)
	assert.Nil(t, second.DepartureDelay)
	assert.Nil(t, second.ArrivalDelay)
	assert.Equal(t, second.PlannedDeparture, second.ActualDeparture())
}

func TestClient_FindJourneys_SkipsMalformedJourneys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]interface{}{
			"journeys": []map[string]interface{}{
				{"legs": []map[string]interface{}{}},
				{
					"legs": []map[string]interface{}{
						{
							"origin":           map[string]string{"id": "a", "name": "A"},
							"destination":      map[string]string{"id": "b", "name": "B"},
							"plannedDeparture": "2024-03-11T18:10:00+01:00",
							"plannedArrival":   "2024-03-11T18:38:00+01:00",
							"line":             map[string]string{"name": "RE 7"},
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := hafas.NewClient(hafas.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient("hafas-test"),
		Logger:     zerolog.Nop(),
	})

	journeys, err := client.FindJourneys(context.Background(), "a", "b", time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, "RE 7", journeys[0].FirstLeg().Line)
}

func TestClient_FindJourneys_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := hafas.NewClient(hafas.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient("hafas-test"),
		Logger:     zerolog.Nop(),
	})

	_, err := client.FindJourneys(context.Background(), "a", "b", time.Now(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 400")
}
