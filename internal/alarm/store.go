package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/railwake/railwake/internal/storage"
)

// Storage keys. Both values are whole-value JSON blobs.
const (
	stateKey   = "alarm/state"
	historyKey = "alarm/history"
)

// StateStore persists alarm state and adjustment history with optimistic
// concurrency. Save commits only when the caller's Version still matches the
// stored revision, so two concurrent reconciliation cycles cannot tear each
// other's writes.
type StateStore struct {
	store storage.Store
}

// NewStateStore creates a state store over the given key-value store.
func NewStateStore(store storage.Store) *StateStore {
	return &StateStore{store: store}
}

// Load returns the persisted alarm state, or nil when none has been written.
func (s *StateStore) Load(ctx context.Context) (*State, error) {
	entry, err := s.store.Get(ctx, stateKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading alarm state: %w", err)
	}

	var state State
	if err := json.Unmarshal(entry.Value, &state); err != nil {
		return nil, fmt.Errorf("decoding alarm state: %w", err)
	}
	state.Version = entry.Version

	return &state, nil
}

// Save commits the state if its Version matches the stored revision.
// Version zero means first-ever write. On success the state's Version is
// updated to the new revision; storage.ErrVersionMismatch means another
// cycle committed first and the caller should re-read and re-evaluate.
func (s *StateStore) Save(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding alarm state: %w", err)
	}

	version, err := s.store.CompareAndPut(ctx, stateKey, data, state.Version)
	if err != nil {
		if errors.Is(err, storage.ErrVersionMismatch) {
			return err
		}
		return fmt.Errorf("saving alarm state: %w", err)
	}
	state.Version = version

	return nil
}

// Clear removes the persisted alarm state.
func (s *StateStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, stateKey); err != nil {
		return fmt.Errorf("clearing alarm state: %w", err)
	}
	return nil
}

// History returns the adjustment records, most recent first.
func (s *StateStore) History(ctx context.Context) ([]AdjustmentRecord, error) {
	entry, err := s.store.Get(ctx, historyKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading adjustment history: %w", err)
	}

	var history []AdjustmentRecord
	if err := json.Unmarshal(entry.Value, &history); err != nil {
		return nil, fmt.Errorf("decoding adjustment history: %w", err)
	}

	return history, nil
}

// AppendAdjustment prepends a record and trims the history to HistoryLimit.
func (s *StateStore) AppendAdjustment(ctx context.Context, record AdjustmentRecord) error {
	history, err := s.History(ctx)
	if err != nil {
		return err
	}

	history = append([]AdjustmentRecord{record}, history...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding adjustment history: %w", err)
	}

	if err := s.store.Put(ctx, historyKey, data); err != nil {
		return fmt.Errorf("saving adjustment history: %w", err)
	}

	return nil
}
