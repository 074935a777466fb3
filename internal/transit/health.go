package transit

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a provider stays marked unavailable after a
// persistent journey-fetch failure before it is automatically re-enabled.
const DefaultCooldown = 5 * time.Minute

// ProviderHealth is a snapshot of one provider's availability.
type ProviderHealth struct {
	// Name is the provider identifier.
	Name string

	// BaseURL is the provider's API base URL.
	BaseURL string

	// IsAvailable reports whether the provider is currently selectable.
	IsAvailable bool

	// LastError is the most recent failure message, if any.
	LastError string

	// UnavailableSince is when the provider was last marked unavailable
	// (zero when available).
	UnavailableSince time.Time
}

// HealthTracker tracks provider availability with timed auto-recovery.
// A provider marked unavailable becomes selectable again once the cooldown
// has elapsed; no background timer is needed because recovery is evaluated
// lazily on lookup.
type HealthTracker struct {
	cooldown time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	table map[string]*ProviderHealth
}

// NewHealthTracker creates a health tracker with the given cooldown.
// A zero cooldown uses DefaultCooldown.
func NewHealthTracker(cooldown time.Duration) *HealthTracker {
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	return &HealthTracker{
		cooldown: cooldown,
		now:      time.Now,
		table:    make(map[string]*ProviderHealth),
	}
}

// Register adds a provider to the table, initially available.
func (t *HealthTracker) Register(name, baseURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table[name] = &ProviderHealth{
		Name:        name,
		BaseURL:     baseURL,
		IsAvailable: true,
	}
}

// MarkUnavailable records a persistent failure for a provider and starts
// its cooldown.
func (t *HealthTracker) MarkUnavailable(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.table[name]
	if !ok {
		return
	}
	h.IsAvailable = false
	h.UnavailableSince = t.now()
	if err != nil {
		h.LastError = err.Error()
	}
}

// MarkAvailable clears a provider's failure state.
func (t *HealthTracker) MarkAvailable(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.table[name]
	if !ok {
		return
	}
	h.IsAvailable = true
	h.LastError = ""
	h.UnavailableSince = time.Time{}
}

// IsAvailable reports whether a provider is selectable, re-enabling it if
// its cooldown has elapsed.
func (t *HealthTracker) IsAvailable(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.table[name]
	if !ok {
		return false
	}
	if !h.IsAvailable && t.now().Sub(h.UnavailableSince) >= t.cooldown {
		h.IsAvailable = true
		h.LastError = ""
		h.UnavailableSince = time.Time{}
	}
	return h.IsAvailable
}

// Snapshot returns a copy of the current health table.
func (t *HealthTracker) Snapshot() []ProviderHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(t.table))
	for _, h := range t.table {
		out = append(out, *h)
	}
	return out
}

// Reset marks all providers available. For test isolation.
func (t *HealthTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, h := range t.table {
		h.IsAvailable = true
		h.LastError = ""
		h.UnavailableSince = time.Time{}
	}
}

// SetClock overrides the tracker's clock. For tests.
func (t *HealthTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}
