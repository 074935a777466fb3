// Package main provides the entrypoint for the railwake API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/api"
	"github.com/railwake/railwake/internal/api/middleware"
	"github.com/railwake/railwake/internal/auth"
	"github.com/railwake/railwake/internal/commute"
	"github.com/railwake/railwake/internal/database"
	"github.com/railwake/railwake/internal/notify"
	"github.com/railwake/railwake/internal/storage"
	"github.com/railwake/railwake/internal/telemetry"
	"github.com/railwake/railwake/internal/transit"
	"github.com/railwake/railwake/internal/transit/hafas"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "railwake-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting railwake API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Initialize the state store. Postgres by default; in-memory for local
	// development without a database.
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
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	// Initialize token service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.railwake.dev",
		Audience:   "railwake-api",
	})
	log.Info().Msg("token service initialized")

	// Initialize the transit service with the HAFAS provider
	hafasClient := hafas.NewClient(hafas.ClientConfig{
		BaseURL: os.Getenv("HAFAS_BASE_URL"),
		Logger:  log,
	})
	transitService := transit.NewService(transit.ServiceConfig{
		Providers: []transit.Provider{hafasClient},
		Logger:    log,
	})
	log.Info().Str("provider", hafasClient.Name()).Msg("transit service initialized")

	// Initialize commute repository and service
	commuteRepo := commute.NewStoreRepository(store, log)
	commuteService := commute.NewService(commute.ServiceConfig{
		Repository: commuteRepo,
		Logger:     log,
	})
	log.Info().Msg("commute service initialized")

	// Initialize notification channels. The push bridge is the baseline;
	// the native alarm bridge is optional and best-effort.
	var notifier notify.Gateway
	if bridgeURL := os.Getenv("PUSH_BRIDGE_URL"); bridgeURL != "" {
		notifier = notify.NewBridge(notify.BridgeConfig{
			BaseURL: bridgeURL,
			Logger:  log,
		})
		log.Info().Str("bridge_url", bridgeURL).Msg("push bridge initialized")
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
		log.Info().Str("bridge_url", wakerURL).Msg("native alarm bridge initialized")
	}

	// Initialize the alarm reconciler
	alarmStates := alarm.NewStateStore(store)
	reconciler := alarm.NewReconciler(alarm.ReconcilerConfig{
		Commutes: commuteService,
		Journeys: transitService,
		States:   alarmStates,
		Notifier: notifier,
		Waker:    waker,
		Logger:   log,
	})
	log.Info().Msg("alarm reconciler initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		TokenService:   tokenService,
		PairingCode:    os.Getenv("PAIRING_SETUP_CODE"),
		TransitService: transitService,
		CommuteService: commuteService,
		AlarmStates:    alarmStates,
		Reconciler:     reconciler,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
