package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/gdacs"
	httpadapter "github.com/couchcryptid/disaster-alert-sync/internal/adapter/http"
	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/postgis"
	"github.com/couchcryptid/disaster-alert-sync/internal/config"
	"github.com/couchcryptid/disaster-alert-sync/internal/observability"
	"github.com/couchcryptid/disaster-alert-sync/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A local .env file fills in unset variables during development; real
	// environment variables always win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgis.New(ctx, postgis.Config{
		DatabaseURL: cfg.DatabaseURL,
		Table:       cfg.EventsTable,
		MaxConns:    cfg.DBMaxConns,
	}, logger, metrics)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	browser := gdacs.NewChromeBrowser(cfg.BrowserTimeout, cfg.BrowserHeadless, cfg.ChromePath)
	fetcher := gdacs.NewClient(cfg.GeoJSONURL, cfg.XMLURL, cfg.FetchTimeout, browser, logger, metrics)

	p := pipeline.New(fetcher, gdacs.Parser{}, store, logger, metrics, pipeline.Options{
		Interval:               cfg.SyncInterval,
		FailureStreakThreshold: cfg.FailureStreakThreshold,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start sync loop.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("sync loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Wait for the loop to wind down. An in-flight store transaction runs
	// detached from the signal context, so this wait is what keeps a commit
	// from being severed by process exit.
	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		logger.Warn("sync loop did not stop within shutdown timeout")
	}

	logger.Info("shutdown complete")
}
