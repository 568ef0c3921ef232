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

	"github.com/joho/godotenv"

	"github.com/lysyi3m/listing-comb/app/agency"
	"github.com/lysyi3m/listing-comb/app/api"
	"github.com/lysyi3m/listing-comb/app/cfg"
	"github.com/lysyi3m/listing-comb/app/crawl"
	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
	"github.com/lysyi3m/listing-comb/app/links"
	"github.com/lysyi3m/listing-comb/app/listing"
	"github.com/lysyi3m/listing-comb/app/locator"
	"github.com/lysyi3m/listing-comb/app/scraper"
	"github.com/lysyi3m/listing-comb/app/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
		os.Exit(1)
	}

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Listing Comb", "version", appCfg.Version, "storage", appCfg.Storage, "data_dir", appCfg.DataDir)

	repo, err := openRepository(appCfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	store, err := links.NewStore(repo)
	if err != nil {
		slog.Error("Failed to load links", "error", err)
		os.Exit(1)
	}

	registry := agency.NewRegistry(appCfg.AgenciesPath())
	if err := registry.Run(); err != nil {
		slog.Error("Failed to load makler registry", "path", appCfg.AgenciesPath(), "error", err)
		os.Exit(1)
	}
	slog.Info("Makler registry loaded", "count", registry.Count())

	orchestrator := crawl.NewOrchestrator(
		crawl.NewHTTPFetcherFactory(appCfg.RequestTimeout, appCfg.UserAgent),
		listing.NewExtractor(),
		crawl.Options{
			Workers:  appCfg.WorkerCount,
			MaxPages: appCfg.MaxPages,
			Delay:    appCfg.PolitenessDelay,
			SiteURL:  appCfg.SiteURL,
		},
	)

	service := scraper.NewService(orchestrator, store, registry, feed.NewGenerator())

	locationFetcher := crawl.NewHTTPFetcher(appCfg.RequestTimeout, appCfg.UserAgent)
	defer locationFetcher.Close()
	locations := locator.NewLocator(locationFetcher, appCfg.SiteURL, appCfg.PolitenessDelay)

	scheduler := tasks.NewScheduler(service)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, registry, locations, scheduler)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", appCfg.Port)
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

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
}

func openRepository(c *cfg.Cfg) (database.Repository, error) {
	switch c.Storage {
	case cfg.StorageSQLite:
		db, err := database.Open(c.DBPath())
		if err != nil {
			return nil, err
		}
		return database.NewSQLiteRepository(db), nil
	default:
		return database.NewJSONRepository(c.LinksPath(), c.BlacklistPath()), nil
	}
}
