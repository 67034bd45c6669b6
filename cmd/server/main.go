package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/luis-ma-m/eco-spain-mapper/internal/adapter/http"
	"github.com/luis-ma-m/eco-spain-mapper/internal/config"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/ingest"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
	"github.com/luis-ma-m/eco-spain-mapper/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	anchors := domain.SpainAnchors()
	limits := ingest.Limits{
		MaxBytes:   cfg.MaxUploadBytes,
		MaxRows:    cfg.MaxRows,
		MaxColumns: cfg.MaxColumns,
	}

	p := pipeline.New(anchors, limits, logger, metrics)
	fetcher := ingest.NewFetcher(cfg.FetchTimeout, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, fetcher, cfg.MaxUploadBytes, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
