// Package routes configures the HTTP router and middleware.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/scoutsec/cmmc-scout/internal/handlers"
	"github.com/scoutsec/cmmc-scout/internal/middleware"
	"github.com/scoutsec/cmmc-scout/internal/service"
	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/database"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
)

// Config holds dependencies for route setup.
type Config struct {
	Service   *service.AssessmentService
	DB        *database.DB
	Producer  *events.Producer
	Config    *config.Config
	Logger    *logger.Logger
	BuildInfo BuildInfo
}

// BuildInfo contains build information.
type BuildInfo struct {
	Version   string
	GitCommit string
}

// New creates a new chi router with all routes and middleware configured.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(chimiddleware.Compress(5))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.scoutsec.dev"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Producer, cfg.BuildInfo.Version, cfg.BuildInfo.GitCommit)
	assessmentHandler := handlers.NewAssessmentHandler(cfg.Service, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Get("/version", healthHandler.Version)

	// Metrics endpoint
	if cfg.Config.Metrics.Enabled {
		r.Get(cfg.Config.Metrics.Path, healthHandler.Metrics)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Config.Auth, cfg.Logger))

		r.Get("/domains", assessmentHandler.Domains)

		r.Route("/assessments", func(r chi.Router) {
			r.Post("/", assessmentHandler.Start)
			r.Get("/{id}", assessmentHandler.Get)
			r.Post("/{id}/responses", assessmentHandler.Submit)
			r.Get("/{id}/report", assessmentHandler.Report)
			r.Post("/{id}/pause", assessmentHandler.Pause)
			r.Post("/{id}/resume", assessmentHandler.Resume)
		})
	})

	return r
}
