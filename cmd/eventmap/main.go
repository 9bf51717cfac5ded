package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/road-event-map/internal/adapter/file"
	httpadapter "github.com/couchcryptid/road-event-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/road-event-map/internal/adapter/kafka"
	"github.com/couchcryptid/road-event-map/internal/catalog"
	"github.com/couchcryptid/road-event-map/internal/config"
	"github.com/couchcryptid/road-event-map/internal/observability"
	"github.com/couchcryptid/road-event-map/internal/render"
	"github.com/couchcryptid/road-event-map/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var source catalog.Source
	switch cfg.EventsSource {
	case config.SourceKafka:
		source = kafkaadapter.NewSnapshotSource(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaTimeout, logger)
		logger.Info("event source: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	default:
		fileSource := file.NewSource(cfg.EventsFile)
		source = fileSource
		logger.Info("event source: file", "path", fileSource.Name())
	}

	highlighter, err := render.NewHighlightCache(cfg.HighlightCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create highlight cache", "error", err)
		os.Exit(1)
	}
	renderer, err := render.New()
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	cat := catalog.New(source, logger, metrics)
	store := view.NewStore(view.StoreConfig{
		Snapshots:   cat,
		Highlighter: highlighter,
		Profile:     cfg.Map,
		TTL:         cfg.SessionTTL,
		Logger:      logger,
		Metrics:     metrics,
	})

	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         cfg.HTTPAddr,
		Ready:        cat,
		Sessions:     store,
		Events:       cat,
		Renderer:     renderer,
		DefaultWidth: cfg.DefaultViewportWidth,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// /readyz reports 503 until the first snapshot is in place.
	go func() {
		if err := cat.LoadInitial(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("initial snapshot load failed", "error", err)
		}
	}()

	stopRefresh := func() {}
	if cfg.RefreshSchedule != "" {
		stopRefresh, err = cat.StartRefresh(ctx, cfg.RefreshSchedule)
		if err != nil {
			logger.Error("failed to schedule snapshot refresh", "error", err)
			os.Exit(1)
		}
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Expire idle sessions.
	storeDone := make(chan struct{})
	go func() {
		store.Run(ctx)
		close(storeDone)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopRefresh()
	<-storeDone

	logger.Info("shutdown complete")
}
