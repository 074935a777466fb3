package transit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwake/railwake/internal/transit"
)

// fakeProvider is a scriptable transit.Provider for service tests.
type fakeProvider struct {
	name         string
	stations     []*transit.Station
	journeys     []*transit.Journey
	err          error
	stationCalls int
	journeyCalls int
}

func (p *fakeProvider) SearchStations(_ context.Context, _ string, _ int) ([]*transit.Station, error) {
	p.stationCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.stations, nil
}

func (p *fakeProvider) FindJourneys(_ context.Context, _, _ string, _ time.Time, _ int) ([]*transit.Journey, error) {
	p.journeyCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.journeys, nil
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) BaseURL() string { return "https://" + p.name + ".test" }

func singleLegJourney(line string, dep, arr time.Time) *transit.Journey {
	return &transit.Journey{
		Legs: []transit.Leg{
			{
				Origin:           transit.Station{ID: "from", Name: "From"},
				Destination:      transit.Station{ID: "to", Name: "To"},
				PlannedDeparture: dep,
				PlannedArrival:   arr,
				Line:             line,
			},
		},
	}
}

func TestService_SearchStations_Caches(t *testing.T) {
	provider := &fakeProvider{
		name:     "p1",
		stations: []*transit.Station{{ID: "1", Name: "Amsterdam Centraal"}},
	}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()

	stations, err := svc.SearchStations(ctx, "Amsterdam")
	require.NoError(t, err)
	require.Len(t, stations, 1)

	// Same query (case-insensitive) hits the cache.
	_, err = svc.SearchStations(ctx, "amsterdam")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.stationCalls)

	// Different query misses.
	_, err = svc.SearchStations(ctx, "utrecht")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.stationCalls)
}

func TestService_SearchStations_WrapsError(t *testing.T) {
	provider := &fakeProvider{name: "p1", err: errors.New("boom")}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	_, err := svc.SearchStations(context.Background(), "amsterdam")
	require.Error(t, err)
	assert.ErrorIs(t, err, transit.ErrStationLookup)
}

func TestService_FindJourneys_CacheKeyIncludesAllParams(t *testing.T) {
	dep := time.Date(2024, 3, 11, 18, 10, 0, 0, time.UTC)
	provider := &fakeProvider{
		name:     "p1",
		journeys: []*transit.Journey{singleLegJourney("IC 1", dep, dep.Add(30*time.Minute))},
	}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()
	arrival := time.Date(2024, 3, 11, 19, 0, 0, 0, time.UTC)

	_, err := svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)
	_, err = svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.journeyCalls)

	// Different arrival time is a different cache entry.
	_, err = svc.FindJourneys(ctx, "a", "b", arrival.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, provider.journeyCalls)

	// So is a different route.
	_, err = svc.FindJourneys(ctx, "a", "c", arrival)
	require.NoError(t, err)
	assert.Equal(t, 3, provider.journeyCalls)
}

func TestService_FindJourneys_ShortTTLExpires(t *testing.T) {
	dep := time.Date(2024, 3, 11, 18, 10, 0, 0, time.UTC)
	provider := &fakeProvider{
		name:     "p1",
		journeys: []*transit.Journey{singleLegJourney("IC 1", dep, dep.Add(30*time.Minute))},
	}
	svc := transit.NewService(transit.ServiceConfig{
		Providers:       []transit.Provider{provider},
		Logger:          zerolog.Nop(),
		JourneyCacheTTL: time.Millisecond,
	})

	ctx := context.Background()
	arrival := dep.Add(time.Hour)

	_, err := svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.journeyCalls)
}

func TestService_FindJourneys_FailureMarksProviderUnavailable(t *testing.T) {
	dep := time.Date(2024, 3, 11, 18, 10, 0, 0, time.UTC)
	broken := &fakeProvider{name: "broken", err: errors.New("timeout")}
	healthy := &fakeProvider{
		name:     "healthy",
		journeys: []*transit.Journey{singleLegJourney("IC 1", dep, dep.Add(30*time.Minute))},
	}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{broken, healthy},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()
	arrival := dep.Add(time.Hour)

	_, err := svc.FindJourneys(ctx, "a", "b", arrival)
	require.Error(t, err)
	assert.ErrorIs(t, err, transit.ErrJourneyFetch)

	// Next fetch selects the healthy fallback provider.
	journeys, err := svc.FindJourneys(ctx, "a", "b", arrival.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, 1, broken.journeyCalls)
	assert.Equal(t, 1, healthy.journeyCalls)

	health := svc.Health()
	byName := make(map[string]transit.ProviderHealth, len(health))
	for _, h := range health {
		byName[h.Name] = h
	}
	assert.False(t, byName["broken"].IsAvailable)
	assert.True(t, byName["healthy"].IsAvailable)
}

func TestService_FindJourneys_FallsBackToFirstProviderWhenNoneAvailable(t *testing.T) {
	broken := &fakeProvider{name: "only", err: errors.New("timeout")}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{broken},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()
	arrival := time.Date(2024, 3, 11, 19, 0, 0, 0, time.UTC)

	_, err := svc.FindJourneys(ctx, "a", "b", arrival)
	require.Error(t, err)

	// Health bookkeeping never hard-fails a fetch: the sole provider is
	// still tried even while marked unavailable.
	_, err = svc.FindJourneys(ctx, "a", "b", arrival.Add(time.Minute))
	require.Error(t, err)
	assert.Equal(t, 2, broken.journeyCalls)
}

func TestService_ClearCacheAndResetHealth(t *testing.T) {
	dep := time.Date(2024, 3, 11, 18, 10, 0, 0, time.UTC)
	provider := &fakeProvider{
		name:     "p1",
		journeys: []*transit.Journey{singleLegJourney("IC 1", dep, dep.Add(30*time.Minute))},
	}
	svc := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()
	arrival := dep.Add(time.Hour)

	_, err := svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)

	svc.ClearCache()

	_, err = svc.FindJourneys(ctx, "a", "b", arrival)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.journeyCalls)

	provider.err = errors.New("boom")
	_, err = svc.FindJourneys(ctx, "a", "b", arrival.Add(time.Minute))
	require.Error(t, err)

	svc.ResetHealth()
	for _, h := range svc.Health() {
		assert.True(t, h.IsAvailable)
	}
}
