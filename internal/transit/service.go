package transit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JourneyResults is how many candidate journeys are requested from the
// upstream, so the selector has real choices rather than only the single
// earliest option.
const JourneyResults = 5

// Provider defines the interface for journey-search data providers.
type Provider interface {
	// SearchStations looks up stations matching a free-text query.
	SearchStations(ctx context.Context, query string, limit int) ([]*Station, error)

	// FindJourneys fetches journey options arriving around the desired time.
	FindJourneys(ctx context.Context, fromID, toID string, desiredArrival time.Time, results int) ([]*Journey, error)

	// Name returns the provider name for logging and health tracking.
	Name() string

	// BaseURL returns the provider's API base URL.
	BaseURL() string
}

// ServiceConfig holds configuration for the transit service.
type ServiceConfig struct {
	// Providers are the transit data providers, in preference order.
	Providers []Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// JourneyCacheTTL is how long to cache journey results (default: 2 minutes).
	// Short, because live delay data must stay fresh.
	JourneyCacheTTL time.Duration

	// StationCacheTTL is how long to cache station lookups (default: 24 hours).
	// Station data rarely changes.
	StationCacheTTL time.Duration

	// HealthCooldown is how long a failed provider stays unavailable
	// (default: 5 minutes).
	HealthCooldown time.Duration
}

// Service provides journey and station data with caching and simple
// provider circuit-breaking. The cache and health table are process-local;
// they reset on restart, which is acceptable for a cache.
type Service struct {
	providers       []Provider
	logger          zerolog.Logger
	journeyCacheTTL time.Duration
	stationCacheTTL time.Duration
	health          *HealthTracker

	mu           sync.RWMutex
	stationCache map[string]*cacheEntry[[]*Station]
	journeyCache map[string]*cacheEntry[[]*Journey]
}

type cacheEntry[T any] struct {
	data      T
	storedAt  time.Time
	expiresAt time.Time
}

// NewService creates a new transit service.
func NewService(cfg ServiceConfig) *Service {
	journeyTTL := cfg.JourneyCacheTTL
	if journeyTTL == 0 {
		journeyTTL = 2 * time.Minute
	}

	stationTTL := cfg.StationCacheTTL
	if stationTTL == 0 {
		stationTTL = 24 * time.Hour
	}

	health := NewHealthTracker(cfg.HealthCooldown)
	for _, p := range cfg.Providers {
		health.Register(p.Name(), p.BaseURL())
	}

	return &Service{
		providers:       cfg.Providers,
		logger:          cfg.Logger,
		journeyCacheTTL: journeyTTL,
		stationCacheTTL: stationTTL,
		health:          health,
		stationCache:    make(map[string]*cacheEntry[[]*Station]),
		journeyCache:    make(map[string]*cacheEntry[[]*Journey]),
	}
}

// SearchStations looks up stations by free-text query.
func (s *Service) SearchStations(ctx context.Context, query string) ([]*Station, error) {
	key := "stations:" + strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	if e, ok := s.stationCache[key]; ok && time.Now().Before(e.expiresAt) {
		stations := e.data
		s.mu.RUnlock()
		return stations, nil
	}
	s.mu.RUnlock()

	provider := s.selectProvider()

	s.logger.Debug().
		Str("provider", provider.Name()).
		Str("query", query).
		Msg("searching stations")

	stations, err := provider.SearchStations(ctx, query, 10)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("station lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrStationLookup, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.stationCache[key] = &cacheEntry[[]*Station]{
		data:      stations,
		storedAt:  now,
		expiresAt: now.Add(s.stationCacheTTL),
	}
	s.mu.Unlock()

	return stations, nil
}

// FindJourneys fetches journey options for a route arriving around the
// desired time. On persistent failure the selected provider is marked
// unavailable for the cooldown period.
func (s *Service) FindJourneys(ctx context.Context, fromID, toID string, desiredArrival time.Time) ([]*Journey, error) {
	key := journeyCacheKey(fromID, toID, desiredArrival)

	s.mu.RLock()
	if e, ok := s.journeyCache[key]; ok && time.Now().Before(e.expiresAt) {
		journeys := e.data
		s.mu.RUnlock()
		return journeys, nil
	}
	s.mu.RUnlock()

	provider := s.selectProvider()

	s.logger.Debug().
		Str("provider", provider.Name()).
		Str("from", fromID).
		Str("to", toID).
		Time("arrival", desiredArrival).
		Msg("fetching journeys")

	journeys, err := provider.FindJourneys(ctx, fromID, toID, desiredArrival, JourneyResults)
	if err != nil {
		s.health.MarkUnavailable(provider.Name(), err)
		s.logger.Error().Err(err).
			Str("provider", provider.Name()).
			Str("from", fromID).
			Str("to", toID).
			Msg("journey fetch failed, provider cooling down")
		return nil, fmt.Errorf("%w: %w", ErrJourneyFetch, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.journeyCache[key] = &cacheEntry[[]*Journey]{
		data:      journeys,
		storedAt:  now,
		expiresAt: now.Add(s.journeyCacheTTL),
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("provider", provider.Name()).
		Int("journeys", len(journeys)).
		Msg("journeys fetched")

	return journeys, nil
}

// selectProvider picks the first available provider, falling back to the
// first configured provider when none are available. Health bookkeeping
// alone never hard-fails a fetch.
func (s *Service) selectProvider() Provider {
	for _, p := range s.providers {
		if s.health.IsAvailable(p.Name()) {
			return p
		}
	}
	return s.providers[0]
}

// Health returns the current provider health snapshot.
func (s *Service) Health() []ProviderHealth {
	return s.health.Snapshot()
}

// ClearCache drops all cached stations and journeys so the next call
// refetches from the provider.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stationCache = make(map[string]*cacheEntry[[]*Station])
	s.journeyCache = make(map[string]*cacheEntry[[]*Journey])
}

// ResetHealth marks all providers available again. For test isolation.
func (s *Service) ResetHealth() {
	s.health.Reset()
}

// journeyCacheKey builds a cache key from all call parameters.
func journeyCacheKey(fromID, toID string, arrival time.Time) string {
	return "journeys:" + fromID + ":" + toID + ":" + arrival.UTC().Format(time.RFC3339)
}
