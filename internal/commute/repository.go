package commute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/storage"
)

// Storage keys. The commute list is a whole-value JSON blob; the legacy key
// held a single commute from the old one-commute-per-day schema and is
// migrated on first load.
const (
	commutesKey      = "commutes/v2"
	legacyCommuteKey = "commute"
)

// Repository defines the interface for commute persistence.
type Repository interface {
	// List retrieves all commutes.
	List(ctx context.Context) ([]*Commute, error)

	// Get retrieves a commute by ID.
	Get(ctx context.Context, id string) (*Commute, error)

	// Upsert creates or replaces a commute.
	Upsert(ctx context.Context, commute *Commute) error

	// Delete removes a commute by ID.
	// Returns ErrCommuteNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// StoreRepository persists the commute list as a single JSON blob in the
// key-value store.
type StoreRepository struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewStoreRepository creates a commute repository over the given store.
func NewStoreRepository(store storage.Store, logger zerolog.Logger) *StoreRepository {
	return &StoreRepository{store: store, logger: logger}
}

// List retrieves all commutes, running the legacy-format migration if the
// current key has never been written.
func (r *StoreRepository) List(ctx context.Context) ([]*Commute, error) {
	entry, err := r.store.Get(ctx, commutesKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return r.migrateLegacy(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading commutes: %w", err)
	}

	var commutes []*Commute
	if err := json.Unmarshal(entry.Value, &commutes); err != nil {
		return nil, fmt.Errorf("decoding commutes: %w", err)
	}

	return commutes, nil
}

// Get retrieves a commute by ID.
func (r *StoreRepository) Get(ctx context.Context, id string) (*Commute, error) {
	commutes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range commutes {
		if c.ID == id {
			return c, nil
		}
	}

	return nil, ErrCommuteNotFound
}

// Upsert creates or replaces a commute.
func (r *StoreRepository) Upsert(ctx context.Context, commute *Commute) error {
	commutes, err := r.List(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, c := range commutes {
		if c.ID == commute.ID {
			commutes[i] = commute
			replaced = true
			break
		}
	}
	if !replaced {
		commutes = append(commutes, commute)
	}

	return r.save(ctx, commutes)
}

// Delete removes a commute by ID.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	commutes, err := r.List(ctx)
	if err != nil {
		return err
	}

	kept := commutes[:0]
	found := false
	for _, c := range commutes {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}

	if !found {
		return ErrCommuteNotFound
	}

	return r.save(ctx, kept)
}

// save writes the whole commute list back to the store.
func (r *StoreRepository) save(ctx context.Context, commutes []*Commute) error {
	data, err := json.Marshal(commutes)
	if err != nil {
		return fmt.Errorf("encoding commutes: %w", err)
	}

	if err := r.store.Put(ctx, commutesKey, data); err != nil {
		return fmt.Errorf("saving commutes: %w", err)
	}

	return nil
}

// migrateLegacy converts the old single-commute schema to the current list
// schema. Runs at most once: it writes the new key and deletes the old one.
func (r *StoreRepository) migrateLegacy(ctx context.Context) ([]*Commute, error) {
	entry, err := r.store.Get(ctx, legacyCommuteKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading legacy commute: %w", err)
	}

	var legacy Commute
	if err := json.Unmarshal(entry.Value, &legacy); err != nil {
		return nil, fmt.Errorf("decoding legacy commute: %w", err)
	}

	commutes := []*Commute{&legacy}
	if err := r.save(ctx, commutes); err != nil {
		return nil, err
	}
	if err := r.store.Delete(ctx, legacyCommuteKey); err != nil {
		return nil, fmt.Errorf("removing legacy commute: %w", err)
	}

	r.logger.Info().
		Str("commute_id", legacy.ID).
		Msg("migrated legacy single-commute storage to commute list")

	return commutes, nil
}

// Ensure StoreRepository implements Repository interface.
var _ Repository = (*StoreRepository)(nil)
