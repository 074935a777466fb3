package commute

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Validation errors.
var (
	ErrInvalidArrivalTime = errors.New("arrival time must be in HH:mm format")
	ErrInvalidDays        = errors.New("recurring commute needs at least one weekday between 0 and 6")
	ErrMissingOneTimeDate = errors.New("one-time commute needs a date")
	ErrMissingName        = errors.New("commute name is required")
	ErrNegativeDuration   = errors.New("preparation time and safety buffer must not be negative")
)

var arrivalTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ServiceConfig holds the dependencies for the commute service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Service handles commute business logic.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new commute service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// List returns all commutes.
func (s *Service) List(ctx context.Context) ([]*Commute, error) {
	return s.repo.List(ctx)
}

// Get returns a commute by ID.
func (s *Service) Get(ctx context.Context, id string) (*Commute, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new commute. The ID is assigned here.
func (s *Service) Create(ctx context.Context, commute *Commute) (*Commute, error) {
	if err := Validate(commute); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	commute.ID = uuid.New().String()
	commute.CreatedAt = now
	commute.UpdatedAt = now

	if err := s.repo.Upsert(ctx, commute); err != nil {
		return nil, fmt.Errorf("creating commute: %w", err)
	}

	s.logger.Info().
		Str("commute_id", commute.ID).
		Str("name", commute.Name).
		Bool("recurring", commute.IsRecurring).
		Msg("commute created")

	return commute, nil
}

// Update validates and replaces an existing commute.
func (s *Service) Update(ctx context.Context, commute *Commute) (*Commute, error) {
	if err := Validate(commute); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, commute.ID)
	if err != nil {
		return nil, err
	}

	commute.CreatedAt = existing.CreatedAt
	commute.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, commute); err != nil {
		return nil, fmt.Errorf("updating commute: %w", err)
	}

	s.logger.Info().Str("commute_id", commute.ID).Msg("commute updated")

	return commute, nil
}

// Delete removes a commute.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("commute_id", id).Msg("commute deleted")

	return nil
}

// Validate checks the invariants a commute must satisfy before it can be
// scheduled against.
func Validate(c *Commute) error {
	if c.Name == "" {
		return ErrMissingName
	}
	if !arrivalTimeRe.MatchString(c.ArrivalTime) {
		return ErrInvalidArrivalTime
	}
	if c.PreparationTime < 0 || c.SafetyBuffer < 0 {
		return ErrNegativeDuration
	}

	if c.IsRecurring {
		if len(c.Days) == 0 {
			return ErrInvalidDays
		}
		for _, d := range c.Days {
			if d < 0 || d > 6 {
				return ErrInvalidDays
			}
		}
		return nil
	}

	if c.OneTimeDate == nil {
		return ErrMissingOneTimeDate
	}

	return nil
}
