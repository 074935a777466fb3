// Package main provides the entrypoint for the railwake background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/commute"
	"github.com/railwake/railwake/internal/database"
	"github.com/railwake/railwake/internal/notify"
	"github.com/railwake/railwake/internal/storage"
	"github.com/railwake/railwake/internal/telemetry"
	"github.com/railwake/railwake/internal/transit"
	"github.com/railwake/railwake/internal/transit/hafas"
	"github.com/railwake/railwake/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "railwake-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting railwake worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// State store shared with the API
	var store storage.Store
	if os.Getenv("STORAGE_BACKEND") == "memory" {
		store = storage.NewInMemoryStore()
		log.Warn().Msg("using in-memory storage - state is lost on restart")
	} else {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure database schema")
		}

		store = storage.NewPostgresStore(pool)
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	hafasClient := hafas.NewClient(hafas.ClientConfig{
		BaseURL: os.Getenv("HAFAS_BASE_URL"),
		Logger:  log,
	})
	transitService := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{hafasClient},
		Logger:    log,
	})

	commuteService := commute.NewService(commute.ServiceConfig{
		Repository: commute.NewStoreRepository(store, log),
		Logger:     log,
	})

	var notifier notify.Gateway
	if bridgeURL := os.Getenv("PUSH_BRIDGE_URL"); bridgeURL != "" {
		notifier = notify.NewBridge(notify.BridgeConfig{
			BaseURL: bridgeURL,
			Logger:  log,
		})
	} else {
		notifier = notify.NewMemoryGateway()
		log.Warn().Msg("PUSH_BRIDGE_URL not set - notifications stay in-process")
	}

	var waker notify.Gateway
	if wakerURL := os.Getenv("NATIVE_ALARM_BRIDGE_URL"); wakerURL != "" {
		waker = notify.NewBridge(notify.BridgeConfig{
			BaseURL: wakerURL,
			Logger:  log,
		})
	}

	reconciler := alarm.NewReconciler(alarm.ReconcilerConfig{
		Commutes: commuteService,
		Journeys: transitService,
		States:   alarm.NewStateStore(store),
		Notifier: notifier,
		Waker:    waker,
		Logger:   log,
	})

	reconcileCfg := worker.DefaultReconcileConfig()
	if raw := os.Getenv("RECONCILE_INTERVAL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			reconcileCfg.Interval = time.Duration(minutes) * time.Minute
		}
	}

	job := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Config:     reconcileCfg,
		Reconciler: reconciler,
		Logger:     log,
	})

	// Health and metrics endpoints for the platform
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Job intake: Pub/Sub when a subscription is configured, otherwise the
	// built-in interval loop.
	if subscription := os.Getenv("PUBSUB_SUBSCRIPTION"); subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        os.Getenv("GCP_PROJECT_ID"),
			SubscriptionName: subscription,
			ReconcileJob:     job,
			Health:           transitService,
			Cache:            transitService,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler error")
			}
		}()
	} else {
		go func() {
			if err := job.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("reconcile loop error")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
