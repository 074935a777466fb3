package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/transit"
)

// HealthReporter reports transit provider availability.
type HealthReporter interface {
	Health() []transit.ProviderHealth
}

// CacheClearer drops cached transit data so the next cycle refetches.
type CacheClearer interface {
	ClearCache()
}

// PubSubHandler handles Pub/Sub messages for the worker. Cloud Scheduler
// publishes job messages on a fixed cadence; the handler dispatches them.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	reconcileJob     *ReconcileJob
	health           HealthReporter
	cache            CacheClearer
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	ReconcileJob     *ReconcileJob
	Health           HealthReporter
	Cache            CacheClearer
	Logger           zerolog.Logger
}

// JobMessage represents a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Reconcile cycles are cheap and serial by nature; one outstanding
	// message is enough.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 2 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		reconcileJob:     cfg.ReconcileJob,
		health:           cfg.Health,
		cache:            cfg.Cache,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch job.JobType {
	case "reconcile":
		_, err = h.reconcileJob.RunOnce(ctx)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	case "cache_invalidate":
		if h.cache != nil {
			h.cache.ClearCache()
		}
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

// handleHealthCheck verifies that at least one transit provider is
// selectable. A single provider in cooldown is routine; all of them down
// means reconcile cycles cannot refresh the alarm.
func (h *PubSubHandler) handleHealthCheck(_ context.Context) error {
	if h.health == nil {
		return nil
	}

	statuses := h.health.Health()
	if len(statuses) == 0 {
		return fmt.Errorf("no transit providers configured")
	}

	available := 0
	for _, s := range statuses {
		if s.IsAvailable {
			available++
		} else {
			h.logger.Warn().
				Str("provider", s.Name).
				Str("last_error", s.LastError).
				Msg("transit provider unavailable")
		}
	}

	if available == 0 {
		return fmt.Errorf("all %d transit providers unavailable", len(statuses))
	}

	h.logger.Debug().
		Int("available", available).
		Int("total", len(statuses)).
		Msg("health check passed")
	return nil
}
