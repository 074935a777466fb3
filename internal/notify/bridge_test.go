package notify_test

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

	"github.com/railwake/railwake/internal/notify"
	"github.com/railwake/railwake/internal/provider/resilience"
)

func bridgeClient() *resilience.Client {
	cfg := resilience.DefaultClientConfig("push-bridge-test")
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	return resilience.NewClient(cfg)
}

func TestBridge_ScheduleAndCancel(t *testing.T) {
	var scheduled map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/notifications/wake":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&scheduled))
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodDelete && r.URL.Path == "/notifications/wake":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	bridge := notify.NewBridge(notify.BridgeConfig{
		BaseURL:    server.URL,
		HTTPClient: bridgeClient(),
		Logger:     zerolog.Nop(),
	})

	at := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	err := bridge.Schedule(context.Background(), "wake", at, "Time to wake up", "IC 2045 departs 07:40")
	require.NoError(t, err)
	assert.Equal(t, "wake", scheduled["id"])
	assert.Equal(t, "Time to wake up", scheduled["title"])

	require.NoError(t, bridge.Cancel(context.Background(), "wake"))
}

func TestBridge_CancelUnknownIDIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	bridge := notify.NewBridge(notify.BridgeConfig{
		BaseURL:    server.URL,
		HTTPClient: bridgeClient(),
		Logger:     zerolog.Nop(),
	})

	assert.NoError(t, bridge.Cancel(context.Background(), "never-scheduled"))
}

func TestBridge_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	bridge := notify.NewBridge(notify.BridgeConfig{
		BaseURL:    server.URL,
		HTTPClient: bridgeClient(),
		Logger:     zerolog.Nop(),
	})

	assert.True(t, bridge.IsAvailable(context.Background()))

	server.Close()
	assert.False(t, bridge.IsAvailable(context.Background()))
}

func TestMemoryGateway(t *testing.T) {
	gw := notify.NewMemoryGateway()
	ctx := context.Background()

	ok, err := gw.RequestAuthorization(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	at := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	require.NoError(t, gw.Schedule(ctx, "wake", at, "Wake up", "IC 2045"))

	alarm, found := gw.Scheduled("wake")
	require.True(t, found)
	assert.Equal(t, at, alarm.At)

	require.NoError(t, gw.Cancel(ctx, "wake"))
	_, found = gw.Scheduled("wake")
	assert.False(t, found)

	gw.SetAvailable(false)
	assert.False(t, gw.IsAvailable(ctx))
	assert.ErrorIs(t, gw.Schedule(ctx, "wake", at, "Wake up", ""), notify.ErrUnavailable)
}
