// Package api provides the HTTP API for railwake.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/alarm"
	"github.com/railwake/railwake/internal/api/handler"
	"github.com/railwake/railwake/internal/api/middleware"
	"github.com/railwake/railwake/internal/auth"
	"github.com/railwake/railwake/internal/commute"
	"github.com/railwake/railwake/internal/transit"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	TokenService   *auth.TokenService
	PairingCode    string
	TransitService *transit.Service
	CommuteService *commute.Service
	AlarmStates    *alarm.StateStore
	Reconciler     handler.AlarmReconciler
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "railwake-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.TransitService)
	pairHandler := handler.NewPairHandler(cfg.TokenService, cfg.PairingCode, cfg.Logger)
	stationHandler := handler.NewStationHandler(cfg.TransitService)
	commuteHandler := handler.NewCommuteHandler(cfg.CommuteService, cfg.Reconciler, cfg.Logger)
	alarmHandler := handler.NewAlarmHandler(cfg.AlarmStates, cfg.Reconciler)

	authMiddleware := middleware.Auth(cfg.TokenService)

	upstreamRateLimit := middleware.RateLimitByIP(middleware.UpstreamRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Device pairing (public, tightly limited)
		r.With(middleware.RateLimitByIP(middleware.PairingRateLimit)).Post("/pair", pairHandler.Pair)

		// Station search hits the transit upstream, so stricter limits
		r.Route("/stations", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(upstreamRateLimit)
			r.Get("/", stationHandler.SearchStations)
		})

		// Commutes (authenticated) - device-based rate limiting
		r.Route("/commutes", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByDevice(middleware.StandardRateLimit))
			r.Get("/", commuteHandler.ListCommutes)
			r.Post("/", commuteHandler.CreateCommute)
			r.Route("/{commuteId}", func(r chi.Router) {
				r.Get("/", commuteHandler.GetCommute)
				r.Put("/", commuteHandler.UpdateCommute)
				r.Delete("/", commuteHandler.DeleteCommute)
			})
		})

		// Alarm state and the foreground trigger
		r.Route("/alarm", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", alarmHandler.GetAlarm)
			r.Get("/adjustments", alarmHandler.ListAdjustments)
			// Reconcile fetches live journeys, so stricter limits
			r.With(upstreamRateLimit).Post("/reconcile", alarmHandler.Reconcile)
		})
	})

	return r
}
