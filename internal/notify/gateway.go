// Package notify abstracts the device-facing alarm and notification channels.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned when a gateway cannot currently deliver.
var ErrUnavailable = errors.New("notification gateway unavailable")

// Gateway delivers wake-up signals to the user's device. Implementations
// must tolerate Cancel for an id that was never scheduled.
type Gateway interface {
	// IsAvailable reports whether the channel can currently be used.
	IsAvailable(ctx context.Context) bool

	// RequestAuthorization asks the device for permission to deliver.
	RequestAuthorization(ctx context.Context) (bool, error)

	// Schedule arms a delivery with the given id at the given instant,
	// replacing any existing delivery under the same id.
	Schedule(ctx context.Context, id string, at time.Time, title, subtitle string) error

	// Cancel removes a pending delivery. Cancelling an unknown id is a no-op.
	Cancel(ctx context.Context, id string) error
}

// ScheduledAlarm is a pending delivery recorded by the in-memory gateway.
type ScheduledAlarm struct {
	At       time.Time
	Title    string
	Subtitle string
}

// MemoryGateway is an in-process Gateway used in tests and local development.
type MemoryGateway struct {
	mu         sync.Mutex
	available  bool
	authorized bool
	scheduled  map[string]ScheduledAlarm
	cancels    int
}

// NewMemoryGateway creates an available, unauthorized in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		available: true,
		scheduled: make(map[string]ScheduledAlarm),
	}
}

// SetAvailable toggles availability.
func (g *MemoryGateway) SetAvailable(available bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = available
}

// IsAvailable reports whether the gateway accepts deliveries.
func (g *MemoryGateway) IsAvailable(_ context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// RequestAuthorization always grants when the gateway is available.
func (g *MemoryGateway) RequestAuthorization(_ context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.available {
		return false, ErrUnavailable
	}
	g.authorized = true
	return true, nil
}

// Schedule records the delivery under the given id.
func (g *MemoryGateway) Schedule(_ context.Context, id string, at time.Time, title, subtitle string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.available {
		return ErrUnavailable
	}
	g.scheduled[id] = ScheduledAlarm{At: at, Title: title, Subtitle: subtitle}
	return nil
}

// Cancel removes a pending delivery.
func (g *MemoryGateway) Cancel(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	delete(g.scheduled, id)
	return nil
}

// Scheduled returns the pending delivery for id, if any.
func (g *MemoryGateway) Scheduled(id string) (ScheduledAlarm, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	alarm, ok := g.scheduled[id]
	return alarm, ok
}

// ScheduledCount returns the number of pending deliveries.
func (g *MemoryGateway) ScheduledCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.scheduled)
}

// CancelCount returns how many Cancel calls have been made.
func (g *MemoryGateway) CancelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancels
}

var _ Gateway = (*MemoryGateway)(nil)
