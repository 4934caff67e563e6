package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dailydisco/discovery/app/api"
	"github.com/dailydisco/discovery/app/cfg"
	"github.com/dailydisco/discovery/app/database"
	"github.com/dailydisco/discovery/app/feed"
	"github.com/dailydisco/discovery/app/sources"
	"github.com/dailydisco/discovery/app/tasks"
)

func main() {
	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Daily Discovery Feed server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	catalog, err := sources.LoadCatalog(appCfg.CatalogFile)
	if err != nil {
		slog.Error("Failed to load source catalog", "error", err)
		os.Exit(1)
	}

	itemRepo := database.NewItemRepository(db)
	metaRepo := database.NewMetaRepository(db)

	client := sources.NewClient(time.Duration(appCfg.HTTPTimeout)*time.Second, appCfg.UserAgent)

	feedConfigs := []feed.FeedConfig{
		{
			Name:   "daily",
			Keying: feed.KeyDate,
			Mode:   feed.ModeReplace,
			Sources: []feed.Source{
				sources.NewVideoSource(client, catalog),
				sources.NewBookSource(client, catalog),
				sources.NewTrendSource(catalog),
				sources.NewNewsSource(client, catalog),
				sources.NewHistorySource(client, catalog),
			},
		},
		{
			Name:   "onthisday",
			Keying: feed.KeyMonthDay,
			Mode:   feed.ModeUpsert,
			Sources: []feed.Source{
				sources.NewOnThisDaySource(client, catalog, feed.CategoryEvent),
				sources.NewOnThisDaySource(client, catalog, feed.CategoryBirth),
				sources.NewOnThisDaySource(client, catalog, feed.CategoryDeath),
			},
		},
	}

	generator := feed.NewGenerator(itemRepo, metaRepo)
	sweeper := feed.NewSweeper(itemRepo)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "generate_at", appCfg.GenerateAt)
	scheduler := tasks.NewScheduler(generator, sweeper, metaRepo, feedConfigs)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(itemRepo, metaRepo, generator, sweeper, feedConfigs)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
