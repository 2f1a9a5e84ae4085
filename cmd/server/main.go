// Package main is the entry point for the QuantBlocks strategy builder service.
// It serves the block editor API: strategy validation, compilation to the
// backtester DSL, persistence, indicator previews and the live editing session.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantblocks/quantblocks/internal/config"
	"github.com/quantblocks/quantblocks/internal/database"
	"github.com/quantblocks/quantblocks/internal/modules/builder"
	"github.com/quantblocks/quantblocks/internal/modules/cleanup"
	"github.com/quantblocks/quantblocks/internal/modules/live"
	"github.com/quantblocks/quantblocks/internal/modules/preview"
	previewhandlers "github.com/quantblocks/quantblocks/internal/modules/preview/handlers"
	"github.com/quantblocks/quantblocks/internal/modules/strategies"
	strategieshandlers "github.com/quantblocks/quantblocks/internal/modules/strategies/handlers"
	"github.com/quantblocks/quantblocks/internal/scheduler"
	"github.com/quantblocks/quantblocks/internal/server"
	"github.com/quantblocks/quantblocks/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting QuantBlocks")

	// Open the strategies database and apply the schema
	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "strategies",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := strategies.InitSchema(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	// Builder components shared by every surface
	registry := builder.DefaultRegistry()
	limits := builder.DefaultLimits()

	// Strategies module
	strategyRepo := strategies.NewRepository(db.Conn(), log)
	strategyService := strategies.NewService(strategyRepo, registry, limits, nil, log)
	strategyHandlers := strategieshandlers.NewHandler(strategyService, log)

	// Indicator preview module
	previewService := preview.NewService(registry, log)
	previewHandlers := previewhandlers.NewHandler(previewService, log)

	// Live editor sessions
	liveHandler := live.NewHandler(strategyService, log)

	// Daily purge of soft-deleted strategies past retention
	sched := scheduler.New(log)
	purgeJob := cleanup.NewPurgeJob(strategyRepo, cfg.RetentionDays, log)
	if err := sched.AddJob("@daily", purgeJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule purge job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:              log,
		DB:               db,
		Config:           cfg,
		StrategyHandlers: strategyHandlers,
		PreviewHandlers:  previewHandlers,
		LiveHandler:      liveHandler,
	})

	// Start server in goroutine so signal handling stays on the main thread.
	// ErrServerClosed is the normal return during graceful shutdown and must
	// not abort the process before Shutdown drains in-flight requests.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// The server is given up to 10 seconds to finish in-flight requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
