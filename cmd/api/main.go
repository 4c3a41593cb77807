// Package main is the entry point for the assessment API service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scoutsec/cmmc-scout/internal/classifier"
	"github.com/scoutsec/cmmc-scout/internal/llm"
	"github.com/scoutsec/cmmc-scout/internal/repository"
	"github.com/scoutsec/cmmc-scout/internal/routes"
	"github.com/scoutsec/cmmc-scout/internal/service"
	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/database"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
)

// Build information (set via ldflags).
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, "json")
	log = log.WithService("api")

	log.Info("starting assessment API",
		"version", version,
		"git_commit", gitCommit,
		"env", cfg.Env,
	)

	// Create context that listens for shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the control catalog
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load control catalog: %w", err)
	}
	log.Info("control catalog loaded", "controls", cat.Len(), "domains", len(cat.Domains()))

	// Connect to database. Persistence is optional; the in-memory
	// registry carries active sessions either way.
	var repo service.Persistence
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Warn("database unavailable, persistence disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		repo = repository.New(db)
		log.Info("connected to database")
	}

	// Event producer falls back to a local JSONL file when the broker
	// is unreachable.
	producer, err := events.NewProducer(cfg.Events)
	if err != nil {
		return fmt.Errorf("failed to create event producer: %w", err)
	}
	defer producer.Close()
	if producer.FallbackMode() {
		log.Warn("event broker unreachable, using file fallback", "path", cfg.Events.FallbackPath)
	}

	// LLM-backed classifier
	llmClient, err := llm.NewClient(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	cls := classifier.New(llmClient, log)

	svc := service.New(cat, cls, producer, repo, log)

	// Build router
	router := routes.New(routes.Config{
		Service:  svc,
		DB:       db,
		Producer: producer,
		Config:   cfg,
		Logger:   log,
		BuildInfo: routes.BuildInfo{
			Version:   version,
			GitCommit: gitCommit,
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.API.Address(),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.API.ShutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				return fmt.Errorf("forced shutdown error: %w", err)
			}
		}

		log.Info("server shutdown complete")
	}

	return nil
}

// loadCatalog loads the embedded control dataset, or an override file
// when one is configured.
func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.ControlsFile != "" {
		return catalog.LoadFile(cfg.ControlsFile)
	}
	return catalog.Default()
}
