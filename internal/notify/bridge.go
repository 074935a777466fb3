package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/provider/resilience"
)

// BridgeConfig holds configuration for the push-bridge gateway.
type BridgeConfig struct {
	// BaseURL is the push bridge endpoint, e.g. "http://localhost:9400".
	BaseURL string

	// HTTPClient is the resilient client used for bridge calls.
	// If nil, a default client is created.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Bridge delivers wake-up signals through an HTTP push bridge that relays
// them to the device. Scheduling is an upsert on the bridge side, so a
// Schedule under an existing id replaces the pending delivery.
type Bridge struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewBridge creates a push-bridge gateway.
func NewBridge(cfg BridgeConfig) *Bridge {
	client := cfg.HTTPClient
	if client == nil {
		client = resilience.NewClient(resilience.DefaultClientConfig("push-bridge"))
	}

	return &Bridge{
		baseURL:    cfg.BaseURL,
		httpClient: client,
		logger:     cfg.Logger.With().Str("component", "push_bridge").Logger(),
	}
}

type bridgeScheduleRequest struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
}

// IsAvailable probes the bridge health endpoint.
func (b *Bridge) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Debug().Err(err).Msg("push bridge health probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// RequestAuthorization asks the bridge to obtain delivery permission from
// the device.
func (b *Bridge) RequestAuthorization(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/authorization", nil)
	if err != nil {
		return false, fmt.Errorf("creating authorization request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Schedule arms a delivery on the bridge.
func (b *Bridge) Schedule(ctx context.Context, id string, at time.Time, title, subtitle string) error {
	body, err := json.Marshal(bridgeScheduleRequest{ID: id, At: at, Title: title, Subtitle: subtitle})
	if err != nil {
		return fmt.Errorf("encoding schedule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.baseURL+"/notifications/"+id, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating schedule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

// Cancel removes a pending delivery from the bridge. A 404 from the bridge
// counts as success.
func (b *Bridge) Cancel(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/notifications/"+id, nil)
	if err != nil {
		return fmt.Errorf("creating cancel request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

var _ Gateway = (*Bridge)(nil)
